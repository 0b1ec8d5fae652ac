package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"speller/internal/errmodel"
	"speller/internal/transducer"
	"speller/pkg/options"
)

// Archive is a loaded spelling archive: a lexicon acceptor, an error model and
// their metadata. It is immutable once Open returns.
type Archive struct {
	path     string
	meta     Metadata
	alphabet *transducer.Alphabet
	lexicon  *transducer.Transducer
	mutator  *transducer.Transducer
	unpacked string
	log      *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// Open loads the archive at path, which is either a zip file or a directory
// with the same members. With options.WithWorkDir the packed tables are
// written below that directory and mapped instead of kept on the heap.
func Open(path string, opts ...options.Options) (*Archive, error) {
	cfg := options.Resolve(options.DefaultOptions, opts...)
	log := cfg.Logger
	if log == nil {
		log = Logger()
	}
	start := time.Now()

	src, closeSrc, err := openSource(path)
	if err != nil {
		log.Warn("archive open failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	defer closeSrc()

	a := &Archive{path: path, alphabet: transducer.NewAlphabet(), log: log}
	if err := a.load(src, cfg.WorkDir); err != nil {
		if cerr := a.release(); cerr != nil {
			log.Warn("archive cleanup failed", zap.String("path", path), zap.Error(cerr))
		}
		log.Warn("archive load failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	log.Info("archive loaded",
		zap.String("path", path),
		zap.String("locale", a.meta.Locale),
		zap.Uint32("lexicon_states", a.lexicon.StateCount()),
		zap.Uint32("errmodel_states", a.mutator.StateCount()),
		zap.Bool("mapped", a.unpacked != ""),
		zap.Duration("took", time.Since(start)))
	return a, nil
}

func openSource(path string) (fs.FS, func() error, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, loadError(KindUnreadable, path, "cannot stat archive", err)
	}
	if info.IsDir() {
		return os.DirFS(path), func() error { return nil }, nil
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, nil, loadError(KindUnreadable, path, "cannot open archive", err)
		}
		return nil, nil, loadError(KindCorrupt, path, "not a valid zip archive", err)
	}
	return zr, zr.Close, nil
}

func (a *Archive) load(src fs.FS, workDir string) error {
	raw, err := fs.ReadFile(src, metadataName)
	if err != nil {
		return loadError(KindCorrupt, a.path, "missing "+metadataName, err)
	}
	if err := yaml.Unmarshal(raw, &a.meta); err != nil {
		return loadError(KindCorrupt, a.path, "invalid "+metadataName, err)
	}

	lexGraph, err := a.readGraph(src, a.meta.acceptorName())
	if err != nil {
		return err
	}

	var mutGraph *transducer.Graph
	if a.meta.ErrModel != "" {
		if mutGraph, err = a.readGraph(src, a.meta.ErrModel); err != nil {
			return err
		}
		if err := mutGraph.CheckEpsilonInputs(); err != nil {
			return loadError(KindCorrupt, a.path, a.meta.ErrModel, err)
		}
	} else {
		mutGraph = errmodel.Generate(a.alphabet, a.meta.Keyboard, a.meta.EditCosts)
	}

	if workDir != "" {
		return a.unpack(workDir, lexGraph, mutGraph)
	}
	if a.lexicon, err = transducer.Compile(lexGraph, a.alphabet); err != nil {
		return loadError(KindCorrupt, a.path, "lexicon", err)
	}
	if a.mutator, err = transducer.Compile(mutGraph, a.alphabet); err != nil {
		return loadError(KindCorrupt, a.path, "error model", err)
	}
	return nil
}

func (a *Archive) readGraph(src fs.FS, name string) (*transducer.Graph, error) {
	f, err := src.Open(name)
	if err != nil {
		return nil, loadError(KindCorrupt, a.path, "missing member "+name, err)
	}
	defer f.Close()

	g, err := transducer.ParseATT(f, a.alphabet)
	if err != nil {
		return nil, loadError(KindCorrupt, a.path, name, err)
	}
	return g, nil
}

func (a *Archive) unpack(workDir string, lex, mut *transducer.Graph) error {
	dir, err := os.MkdirTemp(workDir, "speller-")
	if err != nil {
		return loadError(KindUnpack, a.path, "cannot create unpack directory", err)
	}
	a.unpacked = dir

	tables := []struct {
		name  string
		graph *transducer.Graph
		dst   **transducer.Transducer
	}{
		{"acceptor.bin", lex, &a.lexicon},
		{"errmodel.bin", mut, &a.mutator},
	}
	for _, tb := range tables {
		p := filepath.Join(dir, tb.name)
		if err := transducer.WriteTable(p, transducer.Encode(tb.graph)); err != nil {
			return loadError(KindUnpack, a.path, "cannot write "+tb.name, err)
		}
		t, err := transducer.Map(p, a.alphabet)
		if err != nil {
			return loadError(KindUnpack, a.path, "cannot map "+tb.name, err)
		}
		*tb.dst = t
	}
	return nil
}

func (a *Archive) release() error {
	var errs []error
	if a.lexicon != nil {
		errs = append(errs, a.lexicon.Close())
	}
	if a.mutator != nil {
		errs = append(errs, a.mutator.Close())
	}
	if a.unpacked != "" {
		errs = append(errs, os.RemoveAll(a.unpacked))
	}
	return errors.Join(errs...)
}

// Close unmaps the tables and removes the unpack directory. It waits for
// queries holding the archive. A second Close returns ErrClosed.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	a.closed = true
	if err := a.release(); err != nil {
		a.log.Warn("archive cleanup failed", zap.String("path", a.path), zap.Error(err))
		return fmt.Errorf("archive: close %s: %w", a.path, err)
	}
	a.log.Debug("archive closed", zap.String("path", a.path))
	return nil
}

// Acquire pins the archive for a query; Close blocks until Release.
// It fails with ErrClosed once the archive has been closed.
func (a *Archive) Acquire() error {
	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		return ErrClosed
	}
	return nil
}

func (a *Archive) Release() { a.mu.RUnlock() }

// Locale returns the archive locale, or "" when the metadata has none.
func (a *Archive) Locale() string { return a.meta.Locale }

func (a *Archive) Metadata() Metadata { return a.meta.clone() }

func (a *Archive) Path() string { return a.path }

// UnpackDir is the private directory created under the work directory, if any.
func (a *Archive) UnpackDir() string { return a.unpacked }

func (a *Archive) Alphabet() *transducer.Alphabet { return a.alphabet }

func (a *Archive) Lexicon() *transducer.Transducer { return a.lexicon }

func (a *Archive) ErrorModel() *transducer.Transducer { return a.mutator }

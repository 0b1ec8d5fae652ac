// Package binding is the handle-based surface behind the C ABI. Every value
// handed across the boundary lives in a handle table, so use after release
// and double release are reported as handle.ErrReleased instead of touching
// freed memory.
package binding

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"speller/internal/archive"
	"speller/internal/handle"
	"speller/internal/speller"
	"speller/internal/tokenizer"
	"speller/pkg/options"
)

var ErrIndex = errors.New("binding: index out of range")

// knobs are the per-handle query limits the C API lets callers set between
// queries. They are copied into every query, never shared with one in flight.
type knobs struct {
	queueLimit  int
	weightLimit float32
	beam        float32
}

type archiveEntry struct {
	sp *speller.Speller

	mu    sync.Mutex
	knobs knobs
}

func (e *archiveEntry) Close() error { return e.sp.Close() }

func (e *archiveEntry) snapshot() knobs {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.knobs
}

type cursorEntry struct {
	mu sync.Mutex
	c  *tokenizer.Cursor
}

type Registry struct {
	archives    *handle.Table[*archiveEntry]
	suggestions *handle.Table[[]speller.Suggestion]
	cursors     *handle.Table[*cursorEntry]
	log         *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		archives:    handle.NewTable[*archiveEntry](),
		suggestions: handle.NewTable[[]speller.Suggestion](),
		cursors:     handle.NewTable[*cursorEntry](),
		log:         log,
	}
}

// LoadArchive opens the archive at path. tmpDir, when set, is where packed
// tables are unpacked. Load failures are *archive.LoadError.
func (r *Registry) LoadArchive(path, tmpDir string) (handle.Handle, error) {
	sp, err := speller.Open(path, options.WithWorkDir(tmpDir), options.WithLogger(r.log))
	if err != nil {
		return 0, err
	}
	d := sp.Defaults()
	h, err := r.archives.Insert(&archiveEntry{
		sp: sp,
		knobs: knobs{
			queueLimit:  d.QueueLimit,
			weightLimit: d.WeightLimit,
			beam:        d.Beam,
		},
	})
	if err != nil {
		sp.Close()
		return 0, err
	}
	r.log.Debug("archive handle issued", zap.Uint64("handle", uint64(h)), zap.String("path", path))
	return h, nil
}

func (r *Registry) ReleaseArchive(h handle.Handle) error {
	return r.archives.Release(h)
}

func (r *Registry) archive(h handle.Handle) (*archiveEntry, error) {
	e, err := r.archives.Get(h)
	if err != nil {
		return nil, fmt.Errorf("archive %#x: %w", uint64(h), err)
	}
	return e, nil
}

func (r *Registry) setKnob(h handle.Handle, set func(*knobs)) error {
	e, err := r.archive(h)
	if err != nil {
		return err
	}
	e.mu.Lock()
	set(&e.knobs)
	e.mu.Unlock()
	return nil
}

// SetQueueLimit bounds the search frontier; zero or less means unbounded.
func (r *Registry) SetQueueLimit(h handle.Handle, limit int) error {
	return r.setKnob(h, func(k *knobs) {
		if limit < 0 {
			limit = 0
		}
		k.queueLimit = limit
	})
}

func (r *Registry) SetWeightLimit(h handle.Handle, weight float32) error {
	return r.setKnob(h, func(k *knobs) { k.weightLimit = options.ClampLimit(weight) })
}

func (r *Registry) SetBeam(h handle.Handle, beam float32) error {
	return r.setKnob(h, func(k *knobs) { k.beam = options.ClampLimit(beam) })
}

func (r *Registry) Locale(h handle.Handle) (string, error) {
	e, err := r.archive(h)
	if err != nil {
		return "", err
	}
	return e.sp.Locale(), nil
}

// released turns the panic of a query racing ReleaseArchive into an error.
func released(h handle.Handle, err *error) {
	if p := recover(); p != nil {
		*err = fmt.Errorf("archive %#x: %w: %v", uint64(h), handle.ErrReleased, p)
	}
}

func (r *Registry) IsCorrect(h handle.Handle, word string) (ok bool, err error) {
	e, err := r.archive(h)
	if err != nil {
		return false, err
	}
	defer released(h, &err)
	return e.sp.IsCorrect(word), nil
}

// queryOptions merges the handle knobs with per-call overrides. Non-positive
// maxWeight or beam fall back to the knobs.
func (e *archiveEntry) queryOptions(nBest int, maxWeight, beam float32) []options.Options {
	k := e.snapshot()
	if maxWeight > 0 {
		k.weightLimit = maxWeight
	}
	if beam > 0 {
		k.beam = beam
	}
	return []options.Options{
		options.WithNBest(nBest),
		options.WithQueueLimit(k.queueLimit),
		options.WithWeightLimit(k.weightLimit),
		options.WithBeam(k.beam),
	}
}

// Suggest runs a query and returns a handle to the result list.
func (r *Registry) Suggest(h handle.Handle, word string, nBest int, maxWeight, beam float32) (list handle.Handle, err error) {
	e, err := r.archive(h)
	if err != nil {
		return 0, err
	}
	defer released(h, &err)
	return r.suggestions.Insert(e.sp.Suggest(word, e.queryOptions(nBest, maxWeight, beam)...))
}

func (r *Registry) SuggestJSON(h handle.Handle, word string, nBest int, maxWeight, beam float32) (js []byte, err error) {
	e, err := r.archive(h)
	if err != nil {
		return nil, err
	}
	defer released(h, &err)
	return e.sp.SuggestJSON(word, e.queryOptions(nBest, maxWeight, beam)...)
}

func (r *Registry) suggestion(h handle.Handle, i int) (speller.Suggestion, error) {
	list, err := r.suggestions.Get(h)
	if err != nil {
		return speller.Suggestion{}, fmt.Errorf("suggestions %#x: %w", uint64(h), err)
	}
	if i < 0 || i >= len(list) {
		return speller.Suggestion{}, fmt.Errorf("%w: %d of %d", ErrIndex, i, len(list))
	}
	return list[i], nil
}

func (r *Registry) SuggestionLen(h handle.Handle) (int, error) {
	list, err := r.suggestions.Get(h)
	if err != nil {
		return 0, fmt.Errorf("suggestions %#x: %w", uint64(h), err)
	}
	return len(list), nil
}

func (r *Registry) SuggestionValue(h handle.Handle, i int) (string, error) {
	s, err := r.suggestion(h, i)
	return s.Value, err
}

func (r *Registry) SuggestionWeight(h handle.Handle, i int) (float32, error) {
	s, err := r.suggestion(h, i)
	return s.Weight, err
}

func (r *Registry) ReleaseSuggestions(h handle.Handle) error {
	return r.suggestions.Release(h)
}

// Tokenize starts a cursor over text.
func (r *Registry) Tokenize(text string) (handle.Handle, error) {
	return r.cursors.Insert(&cursorEntry{c: tokenizer.New(text)})
}

// NextToken advances a cursor; ok is false at the end of the text.
func (r *Registry) NextToken(h handle.Handle) (tok tokenizer.Token, ok bool, err error) {
	e, err := r.cursors.Get(h)
	if err != nil {
		return tokenizer.Token{}, false, fmt.Errorf("cursor %#x: %w", uint64(h), err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	tok, ok = e.c.Next()
	return tok, ok, nil
}

func (r *Registry) ReleaseCursor(h handle.Handle) error {
	return r.cursors.Release(h)
}

// Live reports outstanding handles per kind, for leak checks.
func (r *Registry) Live() (archives, suggestions, cursors int) {
	return r.archives.Len(), r.suggestions.Len(), r.cursors.Len()
}

// Close releases everything still outstanding.
func (r *Registry) Close() error {
	return errors.Join(r.cursors.Close(), r.suggestions.Close(), r.archives.Close())
}

// LoadErrorCode maps a load failure to the numeric code of the C ABI:
// 1 unreadable, 2 corrupt, 3 unpack, 0 for anything else.
func LoadErrorCode(err error) uint8 {
	var le *archive.LoadError
	if errors.As(err, &le) {
		return le.Kind.Code()
	}
	return 0
}

// Package speller answers spelling queries against a loaded archive: whether a
// word is in the lexicon, and which lexicon words are closest to it under the
// archive's error model.
package speller

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"speller/internal/archive"
	"speller/pkg/options"
)

// Suggestion is one candidate correction. Lower weights are better; zero is
// an exact match.
type Suggestion struct {
	Value  string  `json:"value"`
	Weight float32 `json:"weight"`
}

// Speller is safe for concurrent queries. Tunables are passed per call and
// never stored on the shared handle.
type Speller struct {
	archive  *archive.Archive
	owned    bool
	defaults options.SpellerOptions
	casing   casing
	log      *zap.Logger
}

// Open loads the archive at path. The returned Speller owns the archive and
// closes it on Close.
func Open(path string, opts ...options.Options) (*Speller, error) {
	a, err := archive.Open(path, opts...)
	if err != nil {
		return nil, err
	}
	s := New(a, opts...)
	s.owned = true
	return s, nil
}

// New wraps an archive the caller keeps owning. opts become the defaults of
// every query.
func New(a *archive.Archive, opts ...options.Options) *Speller {
	cfg := options.Resolve(options.DefaultOptions, opts...)
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Speller{
		archive:  a,
		defaults: cfg,
		casing:   newCasing(a.Locale()),
		log:      log.With(zap.String("locale", a.Locale())),
	}
}

func (s *Speller) Archive() *archive.Archive { return s.archive }

func (s *Speller) Locale() string { return s.archive.Locale() }

// Defaults returns the resolved options queries start from.
func (s *Speller) Defaults() options.SpellerOptions { return s.defaults }

// Close releases the archive when this Speller opened it.
func (s *Speller) Close() error {
	if !s.owned {
		return nil
	}
	return s.archive.Close()
}

// pin holds the archive for the length of one query. Querying a closed
// archive is a programming error.
func (s *Speller) pin() {
	if err := s.archive.Acquire(); err != nil {
		if errors.Is(err, archive.ErrClosed) {
			panic(fmt.Sprintf("speller: query on closed archive %s", s.archive.Path()))
		}
		panic(err)
	}
}

// IsCorrect reports whether the lexicon accepts word as typed or, with case
// handling on, in a lower-cased form of a Title or UPPER word.
func (s *Speller) IsCorrect(word string) bool {
	if word == "" {
		return false
	}
	s.pin()
	defer s.archive.Release()

	word = normalize(word)
	if s.accepts(word) {
		return true
	}
	if !s.defaults.CaseHandling {
		return false
	}
	for _, v := range s.casing.variants(word, pattern(word)) {
		if s.accepts(v) {
			return true
		}
	}
	return false
}

func (s *Speller) accepts(word string) bool {
	return accepts(s.archive.Lexicon(), s.archive.Alphabet().Symbolize(word))
}

// Suggest returns candidates for word sorted by ascending weight, ties in the
// order the search found them. opts override the speller defaults for this
// call only. An empty result is not an error.
func (s *Speller) Suggest(word string, opts ...options.Options) []Suggestion {
	if word == "" {
		return []Suggestion{}
	}
	cfg := options.Resolve(s.defaults, opts...)
	s.pin()
	defer s.archive.Release()

	start := time.Now()
	word = normalize(word)
	out := s.search(word, cfg)

	if p := pattern(word); cfg.CaseHandling && p != caseAsIs {
		for _, v := range s.casing.variants(word, p) {
			out = append(out, s.search(v, cfg)...)
		}
		for i := range out {
			out[i].Value = s.casing.apply(out[i].Value, p)
		}
		out = merge(out, cfg.NBest)
	}

	s.log.Debug("suggest",
		zap.String("word", word),
		zap.Int("results", len(out)),
		zap.Duration("took", time.Since(start)))
	return out
}

func (s *Speller) search(word string, cfg options.SpellerOptions) []Suggestion {
	input := s.archive.Alphabet().Symbolize(word)
	return newSearch(s.archive.Lexicon(), s.archive.ErrorModel(), input, cfg).run()
}

// merge dedups by value keeping the lowest weight and re-sorts; the stable
// sort keeps earlier lists ahead on ties.
func merge(in []Suggestion, nBest int) []Suggestion {
	best := make(map[string]int, len(in))
	out := make([]Suggestion, 0, len(in))
	for _, c := range in {
		if i, ok := best[c.Value]; ok {
			if c.Weight < out[i].Weight {
				out[i].Weight = c.Weight
			}
			continue
		}
		best[c.Value] = len(out)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight < out[j].Weight })
	if nBest > 0 && len(out) > nBest {
		out = out[:nBest]
	}
	return out
}

// SuggestJSON is Suggest encoded as a JSON array of {"value","weight"}.
func (s *Speller) SuggestJSON(word string, opts ...options.Options) ([]byte, error) {
	return json.Marshal(s.Suggest(word, opts...))
}

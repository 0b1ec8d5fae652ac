// Package corrector builds what the keyboard shows: banner suggestions for the
// word being typed and a misspelling report for a whole text. It combines the
// archive speller with the user dictionary.
package corrector

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"speller/internal/speller"
	"speller/internal/tokenizer"
	"speller/internal/userdict"
	"speller/pkg/options"
)

type SpellCorrector struct {
	config  CorrectorConfig
	speller *speller.Speller
	dict    userdict.Store
	log     *zap.Logger
}

// NewSpellCorrector wires a speller and an optional user dictionary.
func NewSpellCorrector(cfg CorrectorConfig, sp *speller.Speller, dict userdict.Store, log *zap.Logger) *SpellCorrector {
	if log == nil {
		log = zap.NewNop()
	}
	return &SpellCorrector{config: cfg, speller: sp, dict: dict, log: log}
}

func (sc *SpellCorrector) Speller() *speller.Speller { return sc.speller }

// =====================
// Banner
// =====================

// Banner returns the items for the word being typed: the word itself first,
// then user dictionary matches, then the best speller suggestions. Nothing
// after the first item repeats the typed word or an earlier item.
func (sc *SpellCorrector) Banner(ctx context.Context, word string) ([]BannerItem, error) {
	if word == "" {
		return nil, nil
	}
	items := []BannerItem{{Title: fmt.Sprintf("%q", word), Value: word, Source: SourceTyped}}
	seen := map[string]bool{word: true}
	add := func(v string, src Source) bool {
		if seen[v] {
			return false
		}
		seen[v] = true
		items = append(items, BannerItem{Title: v, Value: v, Source: src})
		return true
	}

	if sc.dict != nil {
		entries, err := userdict.Suggest(ctx, sc.dict, word, sc.config.UserSuggestions)
		if err != nil {
			return nil, fmt.Errorf("user dictionary: %w", err)
		}
		for _, e := range entries {
			add(matchCase(e.Word, word), SourceUser)
		}
	}

	if n := sc.config.SpellerSuggestions; n > 0 {
		// over-fetch by what is already shown, since those are skipped
		for _, s := range sc.speller.Suggest(word, options.WithNBest(n+len(items))) {
			if n == 0 {
				break
			}
			if add(s.Value, SourceSpeller) {
				n--
			}
		}
	}
	return items, nil
}

// =====================
// Text check
// =====================

// CheckText reports every word that neither the speller nor the user
// dictionary knows. Corrected replaces each with its best suggestion.
func (sc *SpellCorrector) CheckText(ctx context.Context, text string) (CheckResult, error) {
	res := CheckResult{Original: text, Misspellings: []Misspelling{}}
	var out strings.Builder
	for _, tok := range tokenizer.All(text) {
		if tok.Type != tokenizer.Word {
			out.WriteString(tok.Value)
			continue
		}
		res.Words++
		if sc.config.FilterShortWords && utf8.RuneCountInString(tok.Value) <= sc.config.MinWordLength {
			out.WriteString(tok.Value)
			continue
		}
		known, err := sc.IsKnown(ctx, tok.Value)
		if err != nil {
			return CheckResult{}, err
		}
		if known {
			out.WriteString(tok.Value)
			continue
		}
		m := Misspelling{Word: tok.Value, Start: tok.Start, End: tok.End, Suggestions: []string{}}
		for _, s := range sc.speller.Suggest(tok.Value, options.WithNBest(sc.config.CheckSuggestions)) {
			m.Suggestions = append(m.Suggestions, s.Value)
		}
		if len(m.Suggestions) > 0 {
			out.WriteString(m.Suggestions[0])
		} else {
			out.WriteString(tok.Value)
		}
		res.Misspellings = append(res.Misspellings, m)
	}
	res.Corrected = out.String()
	sc.log.Debug("text checked",
		zap.Int("words", res.Words),
		zap.Int("misspellings", len(res.Misspellings)))
	return res, nil
}

// IsKnown reports whether the speller accepts word or the user taught it.
func (sc *SpellCorrector) IsKnown(ctx context.Context, word string) (bool, error) {
	if sc.speller.IsCorrect(word) {
		return true, nil
	}
	if sc.dict == nil {
		return false, nil
	}
	if ok, err := sc.dict.Contains(ctx, word); err != nil || ok {
		return ok, err
	}
	if lw := strings.ToLower(word); lw != word {
		return sc.dict.Contains(ctx, lw)
	}
	return false, nil
}

// =====================
// User words
// =====================

// AddCustomWord teaches the user dictionary a word, or bumps its count.
func (sc *SpellCorrector) AddCustomWord(ctx context.Context, word string) error {
	if sc.dict == nil {
		return fmt.Errorf("corrector: no user dictionary configured")
	}
	return sc.dict.Add(ctx, word)
}

func (sc *SpellCorrector) RemoveCustomWord(ctx context.Context, word string) error {
	if sc.dict == nil {
		return fmt.Errorf("corrector: no user dictionary configured")
	}
	return sc.dict.Remove(ctx, word)
}

func (sc *SpellCorrector) CustomWords(ctx context.Context) ([]userdict.Entry, error) {
	if sc.dict == nil {
		return []userdict.Entry{}, nil
	}
	return sc.dict.All(ctx)
}

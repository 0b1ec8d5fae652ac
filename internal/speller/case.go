package speller

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

type casePattern uint8

const (
	caseAsIs casePattern = iota
	caseTitle
	caseUpper
)

// casing maps case for the archive locale. Casers are stateful, so each call
// builds its own.
type casing struct {
	tag language.Tag
}

func newCasing(locale string) casing {
	tag := language.Und
	if locale != "" {
		if t, err := language.Parse(locale); err == nil {
			tag = t
		}
	}
	return casing{tag: tag}
}

func (c casing) lower(s string) string { return cases.Lower(c.tag).String(s) }
func (c casing) upper(s string) string { return cases.Upper(c.tag).String(s) }
func (c casing) title(s string) string { return cases.Title(c.tag).String(s) }

func normalize(word string) string { return norm.NFC.String(word) }

// pattern classifies word. A lone upper-case letter counts as Title.
func pattern(word string) casePattern {
	first, size := utf8.DecodeRuneInString(word)
	if !unicode.IsUpper(first) && !unicode.IsTitle(first) {
		return caseAsIs
	}
	rest := word[size:]
	hasLower, hasUpper := false, false
	for _, r := range rest {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		}
	}
	switch {
	case hasUpper && !hasLower:
		return caseUpper
	case !hasUpper:
		return caseTitle
	}
	return caseAsIs
}

// variants lists the alternative spellings tried for a cased word, best first.
func (c casing) variants(word string, p casePattern) []string {
	switch p {
	case caseTitle:
		return []string{c.lower(word)}
	case caseUpper:
		return []string{c.title(word), c.lower(word)}
	}
	return nil
}

// apply re-cases a candidate to the pattern of the typed word.
func (c casing) apply(candidate string, p casePattern) string {
	switch p {
	case caseTitle:
		r, size := utf8.DecodeRuneInString(candidate)
		if r == utf8.RuneError {
			return candidate
		}
		return c.upper(string(r)) + candidate[size:]
	case caseUpper:
		return c.upper(candidate)
	}
	return candidate
}

// Package tokenizer splits text into contiguous classified spans. Word
// boundaries follow Unicode text segmentation; adjacent segments of the same
// class are joined, so a token never mixes classes.
package tokenizer

import (
	"unicode"

	"github.com/rivo/uniseg"
)

// Type is the class of a token. The numeric values are part of the C ABI.
type Type uint8

const (
	Other       Type = 0
	Word        Type = 1
	Punctuation Type = 2
	Whitespace  Type = 3
)

func (t Type) String() string {
	switch t {
	case Word:
		return "word"
	case Punctuation:
		return "punctuation"
	case Whitespace:
		return "whitespace"
	}
	return "other"
}

func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Token is the half-open byte range [Start, End) of the input.
type Token struct {
	Type  Type   `json:"type"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Value string `json:"value"`
}

// Cursor walks a text forward, one token per Next. It must not be shared
// between goroutines.
type Cursor struct {
	text  string
	pos   int
	state int
}

func New(text string) *Cursor {
	return &Cursor{text: text, state: -1}
}

// Next returns the next token, or false once the text is exhausted. Calling it
// again after the end keeps returning false.
func (c *Cursor) Next() (Token, bool) {
	if c.pos >= len(c.text) {
		return Token{}, false
	}
	start := c.pos
	seg, _, state := uniseg.FirstWordInString(c.text[start:], c.state)
	typ := classify(seg)
	end := start + len(seg)
	for end < len(c.text) {
		next, _, st := uniseg.FirstWordInString(c.text[end:], state)
		if classify(next) != typ {
			break
		}
		end += len(next)
		state = st
	}
	c.pos, c.state = end, state
	return Token{Type: typ, Start: start, End: end, Value: c.text[start:end]}, true
}

// All tokenizes text in one go.
func All(text string) []Token {
	var out []Token
	c := New(text)
	for {
		tok, ok := c.Next()
		if !ok {
			return out
		}
		out = append(out, tok)
	}
}

func classify(seg string) Type {
	space, punct := true, true
	for _, r := range seg {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			return Word
		}
		if !unicode.IsSpace(r) {
			space = false
		}
		if !unicode.IsPunct(r) {
			punct = false
		}
	}
	switch {
	case space:
		return Whitespace
	case punct:
		return Punctuation
	}
	return Other
}

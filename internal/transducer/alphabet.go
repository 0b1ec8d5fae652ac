package transducer

import (
	"sort"
	"unicode/utf8"
)

// Symbol indexes an Alphabet. Epsilon and Unknown are reserved.
type Symbol uint32

const (
	Epsilon Symbol = 0
	Unknown Symbol = 1
)

const (
	epsilonShort = "@0@"
	epsilonLong  = "@_EPSILON_SYMBOL_@"
	unknownName  = "@_UNKNOWN_SYMBOL_@"
	spaceName    = "@_SPACE_@"
)

// Alphabet is the symbol table shared by the lexicon and the error model of one
// archive. It is only written while an archive is being loaded.
type Alphabet struct {
	names     []string
	index     map[string]Symbol
	multichar []string
}

func NewAlphabet() *Alphabet {
	return &Alphabet{
		names: []string{"", unknownName},
		index: map[string]Symbol{
			epsilonShort: Epsilon,
			epsilonLong:  Epsilon,
			unknownName:  Unknown,
		},
	}
}

// Intern returns the symbol for name, adding it when it is new.
func (a *Alphabet) Intern(name string) Symbol {
	if name == spaceName {
		name = " "
	}
	if s, ok := a.index[name]; ok {
		return s
	}
	s := Symbol(len(a.names))
	a.names = append(a.names, name)
	a.index[name] = s
	if utf8.RuneCountInString(name) > 1 && !isSpecial(name) {
		a.multichar = append(a.multichar, name)
		sort.SliceStable(a.multichar, func(i, j int) bool {
			return len(a.multichar[i]) > len(a.multichar[j])
		})
	}
	return s
}

func (a *Alphabet) Lookup(name string) (Symbol, bool) {
	s, ok := a.index[name]
	return s, ok
}

// Name returns the surface string of s; epsilon and unknown have none.
func (a *Alphabet) Name(s Symbol) string {
	if s <= Unknown || int(s) >= len(a.names) {
		return ""
	}
	return a.names[s]
}

func (a *Alphabet) Len() int { return len(a.names) }

// Letters lists the single-character symbols, which is what the generated
// error model edits over.
func (a *Alphabet) Letters() []Symbol {
	var out []Symbol
	for i := int(Unknown) + 1; i < len(a.names); i++ {
		if utf8.RuneCountInString(a.names[i]) == 1 {
			out = append(out, Symbol(i))
		}
	}
	return out
}

// Symbolize splits word into symbols by longest match against the
// multi-character symbols, falling back to single runes. Runes outside the
// alphabet become Unknown.
func (a *Alphabet) Symbolize(word string) []Symbol {
	out := make([]Symbol, 0, len(word))
	for i := 0; i < len(word); {
		matched := false
		for _, m := range a.multichar {
			if len(word)-i >= len(m) && word[i:i+len(m)] == m {
				out = append(out, a.index[m])
				i += len(m)
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		_, size := utf8.DecodeRuneInString(word[i:])
		if s, ok := a.index[word[i:i+size]]; ok && s > Unknown {
			out = append(out, s)
		} else {
			out = append(out, Unknown)
		}
		i += size
	}
	return out
}

func isSpecial(name string) bool {
	return len(name) > 2 && name[0] == '@' && name[len(name)-1] == '@'
}

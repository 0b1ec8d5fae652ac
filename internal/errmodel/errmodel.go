// Package errmodel builds the error model used when an archive ships only a
// lexicon: a one-state edit transducer whose substitution costs follow the
// distance between keys on the configured keyboard layout.
package errmodel

import (
	"unicode/utf8"

	"speller/internal/transducer"
)

// Costs are the weights of single edits. Zero fields fall back to DefaultCosts.
type Costs struct {
	Insertion     float32 `yaml:"insertion"`
	Deletion      float32 `yaml:"deletion"`
	Substitution  float32 `yaml:"substitution"`
	NearKey       float32 `yaml:"near_key"`
	CaseChange    float32 `yaml:"case_change"`
	Transposition float32 `yaml:"transposition"`
}

var DefaultCosts = Costs{
	Insertion:     1,
	Deletion:      1,
	Substitution:  1,
	NearKey:       0.6,
	CaseChange:    0.5,
	Transposition: 1,
}

func (c Costs) withDefaults() Costs {
	fill := func(v *float32, def float32) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&c.Insertion, DefaultCosts.Insertion)
	fill(&c.Deletion, DefaultCosts.Deletion)
	fill(&c.Substitution, DefaultCosts.Substitution)
	fill(&c.NearKey, DefaultCosts.NearKey)
	fill(&c.CaseChange, DefaultCosts.CaseChange)
	fill(&c.Transposition, DefaultCosts.Transposition)
	return c
}

// Generate returns an edit transducer over the single-character symbols of
// alpha. The keys of layout are interned first, so a typed letter the lexicon
// never uses still substitutes at keyboard cost. A rune outside the alphabet
// may be deleted or replaced by any letter at the flat substitution cost.
// State 0 is the only final state; each ordered pair of letters gets an
// intermediate state so that a swap of neighbours is one edit.
func Generate(alpha *transducer.Alphabet, layout string, costs Costs) *transducer.Graph {
	costs = costs.withDefaults()
	kb := newKeyboard(layout)
	for _, row := range layouts[layout] {
		for _, r := range row {
			alpha.Intern(string(r))
		}
	}
	letters := alpha.Letters()

	g := &transducer.Graph{
		Arcs:   make([][]transducer.Arc, 1, 1+len(letters)*(len(letters)-1)),
		Finals: map[uint32]float32{0: 0},
	}
	add := func(from uint32, a transducer.Arc) {
		g.Arcs[from] = append(g.Arcs[from], a)
	}

	add(0, transducer.Arc{In: transducer.Unknown, Out: transducer.Epsilon, Weight: costs.Deletion})
	for _, a := range letters {
		add(0, transducer.Arc{In: a, Out: a})
		add(0, transducer.Arc{In: a, Out: transducer.Epsilon, Weight: costs.Deletion})
		add(0, transducer.Arc{In: transducer.Epsilon, Out: a, Weight: costs.Insertion})
		add(0, transducer.Arc{In: transducer.Unknown, Out: a, Weight: costs.Substitution})

		ra, _ := utf8.DecodeRuneInString(alpha.Name(a))
		for _, b := range letters {
			if a == b {
				continue
			}
			rb, _ := utf8.DecodeRuneInString(alpha.Name(b))
			add(0, transducer.Arc{In: a, Out: b, Weight: kb.substitutionCost(costs, ra, rb)})

			swap := uint32(len(g.Arcs))
			g.Arcs = append(g.Arcs, []transducer.Arc{{In: b, Out: a, Target: 0, Weight: costs.Transposition}})
			add(0, transducer.Arc{In: a, Out: b, Target: swap})
		}
	}
	g.SortArcs()
	return g
}

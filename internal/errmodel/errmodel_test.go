package errmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speller/internal/transducer"
)

func arcWeight(t *testing.T, g *transducer.Graph, in, out transducer.Symbol) float32 {
	t.Helper()
	for _, a := range g.Arcs[0] {
		if a.In == in && a.Out == out && a.Target == 0 {
			return a.Weight
		}
	}
	t.Fatalf("no arc %d:%d", in, out)
	return 0
}

func TestGenerateShape(t *testing.T) {
	alpha := transducer.NewAlphabet()
	for _, s := range []string{"t", "h", "e"} {
		alpha.Intern(s)
	}
	g := Generate(alpha, "none", Costs{})

	assert.Equal(t, 1+3*2, g.States())
	assert.Equal(t, map[uint32]float32{0: 0}, g.Finals)
	assert.NoError(t, g.CheckEpsilonInputs())

	tr, err := transducer.Compile(g, alpha)
	require.NoError(t, err)

	e, _ := alpha.Lookup("e")
	lo, hi := tr.Match(0, e)
	// identity, deletion, two substitutions, two swap entries
	assert.Equal(t, uint32(6), hi-lo)

	// deletion plus one substitution per letter
	lo, hi = tr.Match(0, transducer.Unknown)
	require.Equal(t, uint32(4), hi-lo)
	outs := make(map[transducer.Symbol]bool)
	for i := lo; i < hi; i++ {
		outs[tr.Arc(i).Out] = true
	}
	assert.True(t, outs[transducer.Epsilon])
	assert.True(t, outs[e])
}

func TestLayoutKeysAreInterned(t *testing.T) {
	alpha := transducer.NewAlphabet()
	for _, s := range []string{"c", "a", "t"} {
		alpha.Intern(s)
	}
	g := Generate(alpha, "qwerty", DefaultCosts)

	s, ok := alpha.Lookup("s")
	require.True(t, ok, "layout key missing from alphabet")
	a, _ := alpha.Lookup("a")
	assert.Equal(t, DefaultCosts.NearKey, arcWeight(t, g, s, a))
	assert.Equal(t, DefaultCosts.Substitution, arcWeight(t, g, transducer.Unknown, a))

	// the typed rune no longer falls back to Unknown
	assert.Equal(t, []transducer.Symbol{alpha.Intern("c"), s, alpha.Intern("t")}, alpha.Symbolize("cst"))
}

func TestKeyboardCosts(t *testing.T) {
	alpha := transducer.NewAlphabet()
	e := alpha.Intern("e")
	r := alpha.Intern("r")
	h := alpha.Intern("h")
	upperE := alpha.Intern("E")

	g := Generate(alpha, "qwerty", DefaultCosts)
	assert.Equal(t, DefaultCosts.NearKey, arcWeight(t, g, e, r))
	assert.Equal(t, DefaultCosts.Substitution, arcWeight(t, g, e, h))
	assert.Equal(t, DefaultCosts.CaseChange, arcWeight(t, g, e, upperE))
	assert.Equal(t, float32(0), arcWeight(t, g, e, e))
	assert.Equal(t, DefaultCosts.Deletion, arcWeight(t, g, e, transducer.Epsilon))
	assert.Equal(t, DefaultCosts.Insertion, arcWeight(t, g, transducer.Epsilon, e))
}

func TestUnknownLayoutUsesFlatSubstitution(t *testing.T) {
	alpha := transducer.NewAlphabet()
	e := alpha.Intern("e")
	r := alpha.Intern("r")

	g := Generate(alpha, "dvorak-ish", Costs{Substitution: 2})
	assert.Equal(t, float32(2), arcWeight(t, g, e, r))
}

func TestWithDefaults(t *testing.T) {
	c := Costs{Insertion: 3}.withDefaults()
	assert.Equal(t, float32(3), c.Insertion)
	assert.Equal(t, DefaultCosts.Deletion, c.Deletion)
	assert.Equal(t, DefaultCosts.Transposition, c.Transposition)
}

func TestLayouts(t *testing.T) {
	assert.Contains(t, Layouts(), "qwerty")
	assert.Contains(t, Layouts(), "jcuken")
}

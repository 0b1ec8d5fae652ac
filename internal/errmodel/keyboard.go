package errmodel

import (
	"math"
	"unicode"
)

var layouts = map[string][]string{
	"qwerty": {
		"qwertyuiop",
		"asdfghjkl",
		"zxcvbnm",
	},
	"jcuken": {
		"ёйцукенгшщзхъ",
		"фывапролджэ",
		"ячсмитьбю",
	},
	"qwertz": {
		"qwertzuiopü",
		"asdfghjklöä",
		"yxcvbnm",
	},
	"azerty": {
		"azertyuiop",
		"qsdfghjklm",
		"wxcvbn",
	},
}

type keyboard map[rune][2]int

func newKeyboard(layout string) keyboard {
	rows, ok := layouts[layout]
	if !ok {
		return nil
	}
	m := make(keyboard)
	for r, row := range rows {
		c := 0
		for _, ch := range row {
			if _, seen := m[ch]; !seen {
				m[ch] = [2]int{r, c}
			}
			c++
		}
	}
	return m
}

// Layouts lists the keyboard names accepted by Generate.
func Layouts() []string {
	out := make([]string, 0, len(layouts))
	for name := range layouts {
		out = append(out, name)
	}
	return out
}

func (k keyboard) distance(a, b rune) float64 {
	a, b = unicode.ToLower(a), unicode.ToLower(b)
	pa, oka := k[a]
	pb, okb := k[b]
	if !oka || !okb {
		return math.Inf(1)
	}
	dr := float64(pa[0] - pb[0])
	dc := float64(pa[1] - pb[1])
	return math.Sqrt(dr*dr + dc*dc)
}

func (k keyboard) substitutionCost(c Costs, a, b rune) float32 {
	if unicode.ToLower(a) == unicode.ToLower(b) {
		return c.CaseChange
	}
	d := k.distance(a, b)
	switch {
	case d <= 1.0:
		return c.NearKey
	case d <= 1.5:
		return (c.NearKey + c.Substitution) / 2
	}
	return c.Substitution
}

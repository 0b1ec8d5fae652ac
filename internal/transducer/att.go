package transducer

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Graph is a parsed transducer before it is packed. State 0 is the start state.
type Graph struct {
	Arcs   [][]Arc
	Finals map[uint32]float32
}

func (g *Graph) States() int { return len(g.Arcs) }

// ParseError reports the offending line of an AT&T source.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("att: line %d: %s", e.Line, e.Msg)
}

// ParseATT reads the AT&T text format. Field counts: 1 or 2 for final states
// (state [weight]), 3 for acceptor arcs (src dst sym), 4 for transducer arcs
// (src dst in out) and 5 for weighted transducer arcs. The source state of the
// first line becomes state 0.
func ParseATT(r io.Reader, alpha *Alphabet) (*Graph, error) {
	g := &Graph{Finals: make(map[uint32]float32)}
	ids := make(map[string]uint32)
	state := func(name string) uint32 {
		if id, ok := ids[name]; ok {
			return id
		}
		id := uint32(len(g.Arcs))
		ids[name] = id
		g.Arcs = append(g.Arcs, nil)
		return id
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if line == "--" {
			return nil, &ParseError{Line: lineNo, Msg: "multiple transducers in one source"}
		}
		fields := strings.Split(line, "\t")
		if len(fields) == 1 {
			fields = strings.Fields(line)
		}
		stateFields := fields[:1]
		if len(fields) >= 3 {
			stateFields = fields[:2]
		}
		for _, f := range stateFields {
			if _, err := strconv.ParseUint(f, 10, 32); err != nil {
				return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("bad state %q", f)}
			}
		}

		switch len(fields) {
		case 1, 2:
			w := float32(0)
			if len(fields) == 2 {
				var err error
				if w, err = parseWeight(fields[1]); err != nil {
					return nil, &ParseError{Line: lineNo, Msg: err.Error()}
				}
			}
			g.Finals[state(fields[0])] = w
		case 3, 4, 5:
			src := state(fields[0])
			dst := state(fields[1])
			in := alpha.Intern(fields[2])
			out := in
			if len(fields) >= 4 {
				out = alpha.Intern(fields[3])
			}
			w := float32(0)
			if len(fields) == 5 {
				var err error
				if w, err = parseWeight(fields[4]); err != nil {
					return nil, &ParseError{Line: lineNo, Msg: err.Error()}
				}
			}
			g.Arcs[src] = append(g.Arcs[src], Arc{In: in, Out: out, Target: dst, Weight: w})
		default:
			return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("unexpected %d fields", len(fields))}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("att: read: %w", err)
	}
	if len(g.Arcs) == 0 {
		return nil, &ParseError{Line: lineNo, Msg: "no states"}
	}

	g.SortArcs()
	return g, nil
}

// SortArcs orders every state's arcs by input symbol, which Match relies on.
func (g *Graph) SortArcs() {
	for _, arcs := range g.Arcs {
		sort.SliceStable(arcs, func(i, j int) bool { return arcs[i].In < arcs[j].In })
	}
}

// CheckEpsilonInputs fails when an arc consuming no input is free, since such
// arcs would let the search loop without ever paying for it.
func (g *Graph) CheckEpsilonInputs() error {
	for s, arcs := range g.Arcs {
		for _, a := range arcs {
			if a.In == Epsilon && a.Out != Epsilon && a.Weight <= 0 {
				return fmt.Errorf("att: state %d: epsilon-input arc must have a positive weight", s)
			}
		}
	}
	return nil
}

func parseWeight(s string) (float32, error) {
	w, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return 0, fmt.Errorf("bad weight %q", s)
	}
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0, fmt.Errorf("weight %q must be finite and non-negative", s)
	}
	return float32(w), nil
}

package speller

import (
	"container/heap"
	"strings"

	"speller/internal/transducer"
	"speller/pkg/options"
)

// node is one search configuration. accept marks a finished candidate whose
// weight already includes both final weights.
type node struct {
	pos    int
	em     uint32
	lex    uint32
	out    string
	weight float32
	seq    uint64
	accept bool
	idx    [2]int
}

type nodeKey struct {
	pos    int
	em     uint32
	lex    uint32
	out    string
	accept bool
}

func (n *node) key() nodeKey {
	return nodeKey{pos: n.pos, em: n.em, lex: n.lex, out: n.out, accept: n.accept}
}

const (
	bestFirst = iota
	worstFirst
)

// frontier is a heap on (weight, seq). A bounded search keeps the same nodes
// in a bestFirst heap for expansion and a worstFirst heap for eviction; each
// node records its index in both so either side can remove it directly.
type frontier struct {
	nodes []*node
	order int
}

func (f *frontier) Len() int { return len(f.nodes) }
func (f *frontier) Less(i, j int) bool {
	a, b := f.nodes[i], f.nodes[j]
	if f.order == worstFirst {
		a, b = b, a
	}
	if a.weight != b.weight {
		return a.weight < b.weight
	}
	return a.seq < b.seq
}
func (f *frontier) Swap(i, j int) {
	f.nodes[i], f.nodes[j] = f.nodes[j], f.nodes[i]
	f.nodes[i].idx[f.order] = i
	f.nodes[j].idx[f.order] = j
}
func (f *frontier) Push(x any) {
	n := x.(*node)
	n.idx[f.order] = len(f.nodes)
	f.nodes = append(f.nodes, n)
}
func (f *frontier) Pop() any {
	old := f.nodes
	n := old[len(old)-1]
	old[len(old)-1] = nil
	f.nodes = old[:len(old)-1]
	n.idx[f.order] = -1
	return n
}

type search struct {
	lexicon *transducer.Transducer
	mutator *transducer.Transducer
	alpha   *transducer.Alphabet
	input   []transducer.Symbol
	opts    options.SpellerOptions

	queue   frontier
	evict   frontier
	seen    map[nodeKey]float32
	done    map[nodeKey]struct{}
	seq     uint64
	best    float32
	found   bool
	results []Suggestion
	emitted map[string]struct{}
}

func newSearch(lexicon, mutator *transducer.Transducer, input []transducer.Symbol, opts options.SpellerOptions) *search {
	return &search{
		lexicon: lexicon,
		mutator: mutator,
		alpha:   lexicon.Alphabet(),
		input:   input,
		opts:    opts,
		evict:   frontier{order: worstFirst},
		seen:    make(map[nodeKey]float32),
		done:    make(map[nodeKey]struct{}),
		emitted: make(map[string]struct{}),
		results: []Suggestion{},
	}
}

// admit is the single pruning rule, used both when pushing and when expanding.
func (s *search) admit(w float32) bool {
	if w > s.opts.WeightLimit {
		return false
	}
	return !s.found || w <= s.best+s.opts.Beam
}

func (s *search) push(n *node) {
	if !s.admit(n.weight) {
		return
	}
	k := n.key()
	if w, ok := s.seen[k]; ok && w <= n.weight {
		return
	}
	s.seen[k] = n.weight
	s.seq++
	n.seq = s.seq
	heap.Push(&s.queue, n)
	if limit := s.opts.QueueLimit; limit > 0 {
		heap.Push(&s.evict, n)
		for s.queue.Len() > limit {
			worst := heap.Pop(&s.evict).(*node)
			heap.Remove(&s.queue, worst.idx[bestFirst])
		}
	}
}

func (s *search) pop() *node {
	n := heap.Pop(&s.queue).(*node)
	if s.opts.QueueLimit > 0 {
		heap.Remove(&s.evict, n.idx[worstFirst])
	}
	return n
}

// run explores configurations in weight order. Accepting entries leave the
// queue in non-decreasing weight, so the first occurrence of a candidate is
// its cheapest and the search can stop at NBest. A word the lexicon accepts
// as typed is emitted first at weight zero, whatever its lexicon weight.
func (s *search) run() []Suggestion {
	if accepts(s.lexicon, s.input) && s.emit(s.spell(s.input), 0) {
		return s.results
	}
	s.push(&node{})
	for s.queue.Len() > 0 {
		n := s.pop()
		if !s.admit(n.weight) {
			continue
		}
		k := n.key()
		if w := s.seen[k]; n.weight > w {
			continue
		}
		if _, ok := s.done[k]; ok {
			continue
		}
		s.done[k] = struct{}{}

		if n.accept {
			if s.emit(n.out, n.weight) {
				break
			}
			continue
		}
		s.expand(n)
	}
	return s.results
}

// emit records a candidate unless it was already found, and reports whether
// the result list is full.
func (s *search) emit(value string, w float32) bool {
	if _, dup := s.emitted[value]; dup {
		return false
	}
	s.emitted[value] = struct{}{}
	s.results = append(s.results, Suggestion{Value: value, Weight: w})
	if !s.found {
		s.best, s.found = w, true
	}
	return s.opts.NBest > 0 && len(s.results) >= s.opts.NBest
}

func (s *search) spell(input []transducer.Symbol) string {
	var b strings.Builder
	for _, sym := range input {
		b.WriteString(s.alpha.Name(sym))
	}
	return b.String()
}

func (s *search) expand(n *node) {
	if n.pos == len(s.input) {
		if ef, ok := s.mutator.Final(n.em); ok {
			if lf, ok := s.lexicon.Final(n.lex); ok {
				s.push(&node{pos: n.pos, em: n.em, lex: n.lex, out: n.out, weight: n.weight + ef + lf, accept: true})
			}
		}
	}

	// lexicon epsilons move without reading or writing
	lo, hi := s.lexicon.Match(n.lex, transducer.Epsilon)
	for i := lo; i < hi; i++ {
		la := s.lexicon.Arc(i)
		s.push(&node{pos: n.pos, em: n.em, lex: la.Target, out: n.out + s.alpha.Name(la.Out), weight: n.weight + la.Weight})
	}

	s.expandMutator(n, transducer.Epsilon, n.pos)
	if n.pos < len(s.input) {
		s.expandMutator(n, s.input[n.pos], n.pos+1)
	}
}

func (s *search) expandMutator(n *node, in transducer.Symbol, next int) {
	lo, hi := s.mutator.Match(n.em, in)
	for i := lo; i < hi; i++ {
		ea := s.mutator.Arc(i)
		w := n.weight + ea.Weight
		if ea.Out == transducer.Epsilon {
			s.push(&node{pos: next, em: ea.Target, lex: n.lex, out: n.out, weight: w})
			continue
		}
		llo, lhi := s.lexicon.Match(n.lex, ea.Out)
		for j := llo; j < lhi; j++ {
			la := s.lexicon.Arc(j)
			s.push(&node{
				pos:    next,
				em:     ea.Target,
				lex:    la.Target,
				out:    n.out + s.alpha.Name(la.Out),
				weight: w + la.Weight,
			})
		}
	}
}

// accepts walks the lexicon directly, following epsilon arcs between symbols.
func accepts(lexicon *transducer.Transducer, input []transducer.Symbol) bool {
	states := closure(lexicon, []uint32{0})
	for _, sym := range input {
		if sym == transducer.Unknown {
			return false
		}
		var next []uint32
		for _, st := range states {
			lo, hi := lexicon.Match(st, sym)
			for i := lo; i < hi; i++ {
				next = append(next, lexicon.Arc(i).Target)
			}
		}
		if len(next) == 0 {
			return false
		}
		states = closure(lexicon, next)
	}
	for _, st := range states {
		if _, ok := lexicon.Final(st); ok {
			return true
		}
	}
	return false
}

func closure(lexicon *transducer.Transducer, states []uint32) []uint32 {
	seen := make(map[uint32]struct{}, len(states))
	out := make([]uint32, 0, len(states))
	stack := append([]uint32(nil), states...)
	for len(stack) > 0 {
		st := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[st]; ok {
			continue
		}
		seen[st] = struct{}{}
		out = append(out, st)
		lo, hi := lexicon.Match(st, transducer.Epsilon)
		for i := lo; i < hi; i++ {
			stack = append(stack, lexicon.Arc(i).Target)
		}
	}
	return out
}

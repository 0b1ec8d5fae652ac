package transducer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
)

// Packed layout, little endian:
//
//	header  magic[4] version:u32 states:u32 arcs:u32
//	state   firstArc:u32 arcCount:u32 final:f32 (+Inf when not final)
//	arc     in:u32 out:u32 target:u32 weight:f32
const (
	magic      = "SPTB"
	version    = 1
	headerSize = 16
	stateSize  = 12
	arcSize    = 16
)

var (
	ErrBadMagic   = errors.New("transducer: bad magic")
	ErrBadVersion = errors.New("transducer: unsupported table version")
	ErrTruncated  = errors.New("transducer: truncated table")
)

// Arc is one transition. Target is a state index.
type Arc struct {
	In     Symbol
	Out    Symbol
	Target uint32
	Weight float32
}

// Transducer reads transitions straight out of a packed table, which may live
// on the heap or in a read-only mapping.
type Transducer struct {
	data     []byte
	states   uint32
	arcs     uint32
	alphabet *Alphabet
	closer   func() error
}

// Encode packs g. Arcs keep the per-state order established by ParseATT.
func Encode(g *Graph) []byte {
	total := 0
	for _, arcs := range g.Arcs {
		total += len(arcs)
	}
	buf := make([]byte, headerSize+stateSize*len(g.Arcs)+arcSize*total)
	le := binary.LittleEndian
	copy(buf, magic)
	le.PutUint32(buf[4:], version)
	le.PutUint32(buf[8:], uint32(len(g.Arcs)))
	le.PutUint32(buf[12:], uint32(total))

	next := uint32(0)
	arcBase := headerSize + stateSize*len(g.Arcs)
	for s, arcs := range g.Arcs {
		off := headerSize + stateSize*s
		final := float32(math.Inf(1))
		if w, ok := g.Finals[uint32(s)]; ok {
			final = w
		}
		le.PutUint32(buf[off:], next)
		le.PutUint32(buf[off+4:], uint32(len(arcs)))
		le.PutUint32(buf[off+8:], math.Float32bits(final))
		for _, a := range arcs {
			p := arcBase + arcSize*int(next)
			le.PutUint32(buf[p:], uint32(a.In))
			le.PutUint32(buf[p+4:], uint32(a.Out))
			le.PutUint32(buf[p+8:], a.Target)
			le.PutUint32(buf[p+12:], math.Float32bits(a.Weight))
			next++
		}
	}
	return buf
}

// Load validates a packed table and wraps it. data is not copied.
func Load(data []byte, alpha *Alphabet) (*Transducer, error) {
	if len(data) < headerSize {
		return nil, ErrTruncated
	}
	if string(data[:4]) != magic {
		return nil, ErrBadMagic
	}
	le := binary.LittleEndian
	if v := le.Uint32(data[4:]); v != version {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, v)
	}
	t := &Transducer{
		data:     data,
		states:   le.Uint32(data[8:]),
		arcs:     le.Uint32(data[12:]),
		alphabet: alpha,
	}
	if uint64(len(data)) != headerSize+stateSize*uint64(t.states)+arcSize*uint64(t.arcs) {
		return nil, ErrTruncated
	}
	if t.states == 0 {
		return nil, fmt.Errorf("transducer: no states")
	}
	for s := uint32(0); s < t.states; s++ {
		first, end := t.Arcs(s)
		if first > end || end > t.arcs {
			return nil, fmt.Errorf("transducer: state %d: arc range out of bounds", s)
		}
	}
	for i := uint32(0); i < t.arcs; i++ {
		if a := t.Arc(i); a.Target >= t.states {
			return nil, fmt.Errorf("transducer: arc %d: target %d out of range", i, a.Target)
		}
	}
	return t, nil
}

// Compile parses an AT&T graph and packs it onto the heap.
func Compile(g *Graph, alpha *Alphabet) (*Transducer, error) {
	return Load(Encode(g), alpha)
}

func (t *Transducer) Alphabet() *Alphabet { return t.alphabet }
func (t *Transducer) StateCount() uint32  { return t.states }
func (t *Transducer) ArcCount() uint32    { return t.arcs }

// Final reports the final weight of s.
func (t *Transducer) Final(s uint32) (float32, bool) {
	off := headerSize + stateSize*int(s)
	w := math.Float32frombits(binary.LittleEndian.Uint32(t.data[off+8:]))
	if math.IsInf(float64(w), 1) {
		return 0, false
	}
	return w, true
}

// Arcs returns the half-open arc index range of s.
func (t *Transducer) Arcs(s uint32) (uint32, uint32) {
	off := headerSize + stateSize*int(s)
	first := binary.LittleEndian.Uint32(t.data[off:])
	return first, first + binary.LittleEndian.Uint32(t.data[off+4:])
}

func (t *Transducer) Arc(i uint32) Arc {
	p := headerSize + stateSize*int(t.states) + arcSize*int(i)
	le := binary.LittleEndian
	return Arc{
		In:     Symbol(le.Uint32(t.data[p:])),
		Out:    Symbol(le.Uint32(t.data[p+4:])),
		Target: le.Uint32(t.data[p+8:]),
		Weight: math.Float32frombits(le.Uint32(t.data[p+12:])),
	}
}

// Match returns the arc range of s whose input is in.
func (t *Transducer) Match(s uint32, in Symbol) (uint32, uint32) {
	first, end := t.Arcs(s)
	n := int(end - first)
	lo := sort.Search(n, func(i int) bool { return t.Arc(first+uint32(i)).In >= in })
	hi := lo + sort.Search(n-lo, func(i int) bool { return t.Arc(first+uint32(lo+i)).In > in })
	return first + uint32(lo), first + uint32(hi)
}

// Bytes exposes the packed table, e.g. for writing it to a work directory.
func (t *Transducer) Bytes() []byte { return t.data }

// Close releases the backing mapping, if any.
func (t *Transducer) Close() error {
	if t.closer == nil {
		return nil
	}
	c := t.closer
	t.closer = nil
	t.data = nil
	return c()
}

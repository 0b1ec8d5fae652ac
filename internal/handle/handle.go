// Package handle hands out opaque integer handles for values that cross a
// foreign-call boundary. A handle is valid from Insert until its Release;
// stale handles are detected, never aliased to a newer value.
package handle

import (
	"errors"
	"io"
	"sync"
)

var (
	ErrInvalid  = errors.New("handle: invalid handle")
	ErrReleased = errors.New("handle: already released")
	ErrClosed   = errors.New("handle: table closed")
)

// Handle packs a slot generation in the high half and slot+1 in the low half,
// so the zero Handle is never issued.
type Handle uint64

func makeHandle(gen uint32, slot int) Handle {
	return Handle(uint64(gen)<<32 | uint64(slot+1))
}

func (h Handle) split() (uint32, int) {
	return uint32(h >> 32), int(uint32(h)) - 1
}

type entry[T any] struct {
	value T
	gen   uint32
	live  bool
}

// Table is safe for concurrent use.
type Table[T any] struct {
	mu       sync.RWMutex
	entries  []entry[T]
	freeList []int
	live     int
	closed   bool
}

func NewTable[T any]() *Table[T] {
	return &Table[T]{
		entries:  make([]entry[T], 0, 16),
		freeList: make([]int, 0, 8),
	}
}

// Insert stores v and returns its handle.
func (t *Table[T]) Insert(v T) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, ErrClosed
	}

	var slot int
	if n := len(t.freeList); n > 0 {
		slot = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
	} else {
		t.entries = append(t.entries, entry[T]{gen: 1})
		slot = len(t.entries) - 1
	}
	e := &t.entries[slot]
	e.value = v
	e.live = true
	t.live++
	return makeHandle(e.gen, slot), nil
}

// lookup must be called with t.mu held.
func (t *Table[T]) lookup(h Handle) (*entry[T], error) {
	if h == 0 {
		return nil, ErrInvalid
	}
	gen, slot := h.split()
	if slot < 0 || slot >= len(t.entries) {
		return nil, ErrInvalid
	}
	e := &t.entries[slot]
	switch {
	case gen == e.gen && e.live:
		return e, nil
	case gen < e.gen:
		return nil, ErrReleased
	}
	return nil, ErrInvalid
}

func (t *Table[T]) Get(h Handle) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, err := t.lookup(h)
	if err != nil {
		var zero T
		return zero, err
	}
	return e.value, nil
}

// Release drops h. Values implementing io.Closer are closed and the close
// error is returned; the handle is gone either way.
func (t *Table[T]) Release(h Handle) error {
	t.mu.Lock()
	e, err := t.lookup(h)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	v := e.value
	var zero T
	e.value = zero
	e.live = false
	e.gen++
	t.live--
	_, slot := h.split()
	t.freeList = append(t.freeList, slot)
	t.mu.Unlock()

	if c, ok := any(v).(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Len returns the number of live handles.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// Close releases every live value and rejects further inserts.
func (t *Table[T]) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	var values []T
	for i := range t.entries {
		e := &t.entries[i]
		if e.live {
			values = append(values, e.value)
			var zero T
			e.value = zero
			e.live = false
			e.gen++
		}
	}
	t.live = 0
	t.freeList = nil
	t.mu.Unlock()

	var errs []error
	for _, v := range values {
		if c, ok := any(v).(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

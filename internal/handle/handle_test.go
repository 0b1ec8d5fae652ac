package handle

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closer struct {
	closed int
	err    error
}

func (c *closer) Close() error {
	c.closed++
	return c.err
}

func TestTable_Basic(t *testing.T) {
	table := NewTable[string]()

	h, err := table.Insert("test")
	require.NoError(t, err)
	assert.NotZero(t, h)
	assert.Equal(t, 1, table.Len())

	v, err := table.Get(h)
	require.NoError(t, err)
	assert.Equal(t, "test", v)

	require.NoError(t, table.Release(h))
	assert.Equal(t, 0, table.Len())
}

func TestTable_DoubleRelease(t *testing.T) {
	table := NewTable[int]()
	h, err := table.Insert(7)
	require.NoError(t, err)

	require.NoError(t, table.Release(h))
	assert.ErrorIs(t, table.Release(h), ErrReleased)
	_, err = table.Get(h)
	assert.ErrorIs(t, err, ErrReleased)
}

func TestTable_InvalidHandles(t *testing.T) {
	table := NewTable[int]()

	_, err := table.Get(0)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, table.Release(0), ErrInvalid)
	assert.ErrorIs(t, table.Release(Handle(42)), ErrInvalid)

	h, err := table.Insert(1)
	require.NoError(t, err)
	gen, slot := h.split()
	_, err = table.Get(makeHandle(gen+5, slot))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestTable_SlotReuseDoesNotAlias(t *testing.T) {
	table := NewTable[string]()

	old, err := table.Insert("first")
	require.NoError(t, err)
	require.NoError(t, table.Release(old))

	fresh, err := table.Insert("second")
	require.NoError(t, err)
	assert.NotEqual(t, old, fresh)

	_, oldSlot := old.split()
	_, freshSlot := fresh.split()
	assert.Equal(t, oldSlot, freshSlot)

	_, err = table.Get(old)
	assert.ErrorIs(t, err, ErrReleased)
	assert.ErrorIs(t, table.Release(old), ErrReleased)

	v, err := table.Get(fresh)
	require.NoError(t, err)
	assert.Equal(t, "second", v)
}

func TestTable_ReleaseClosesValue(t *testing.T) {
	table := NewTable[*closer]()
	c := &closer{err: errors.New("boom")}
	h, err := table.Insert(c)
	require.NoError(t, err)

	assert.EqualError(t, table.Release(h), "boom")
	assert.Equal(t, 1, c.closed)
	assert.ErrorIs(t, table.Release(h), ErrReleased)
	assert.Equal(t, 1, c.closed)
}

func TestTable_Close(t *testing.T) {
	table := NewTable[*closer]()
	a, b := &closer{}, &closer{}
	ha, err := table.Insert(a)
	require.NoError(t, err)
	_, err = table.Insert(b)
	require.NoError(t, err)

	require.NoError(t, table.Close())
	assert.Equal(t, 1, a.closed)
	assert.Equal(t, 1, b.closed)
	assert.Equal(t, 0, table.Len())

	_, err = table.Get(ha)
	assert.ErrorIs(t, err, ErrReleased)
	_, err = table.Insert(&closer{})
	assert.ErrorIs(t, err, ErrClosed)
	require.NoError(t, table.Close())
}

func TestTable_Concurrent(t *testing.T) {
	table := NewTable[int]()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h, err := table.Insert(i*1000 + j)
				if !assert.NoError(t, err) {
					return
				}
				v, err := table.Get(h)
				assert.NoError(t, err)
				assert.Equal(t, i*1000+j, v)
				assert.NoError(t, table.Release(h))
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, table.Len())
}

package alloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/shmkit/internal/mem"
)

func TestLayout(t *testing.T) {
	t.Run("layout of type", func(t *testing.T) {
		l := LayoutOf[uint64]()
		assert.Equal(t, 8, l.Size)
		assert.Equal(t, 8, l.Align)
		assert.True(t, l.Valid())
	})

	t.Run("invalid layouts", func(t *testing.T) {
		assert.False(t, Layout{Size: -1, Align: 8}.Valid())
		assert.False(t, Layout{Size: 8, Align: 0}.Valid())
		assert.False(t, Layout{Size: 8, Align: 3}.Valid())
	})
}

func TestHeap(t *testing.T) {
	t.Run("allocate and deallocate", func(t *testing.T) {
		h := NewHeap()

		p, err := h.Allocate(Layout{Size: 128, Align: 16})
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.True(t, mem.IsAligned(p, 16))
		assert.Equal(t, 1, h.Outstanding())

		h.Deallocate(p, Layout{Size: 128, Align: 16})
		assert.Equal(t, 0, h.Outstanding())
	})

	t.Run("zero size returns placeholder", func(t *testing.T) {
		h := NewHeap()

		p, err := h.Allocate(Layout{Size: 0, Align: 8})
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.True(t, IsZeroSized(p))
		assert.Equal(t, 0, h.Outstanding())

		// Every zero-sized allocation shares the placeholder.
		q, err := h.Allocate(Layout{Size: 0, Align: 32})
		require.NoError(t, err)
		assert.Equal(t, p, q)

		h.Deallocate(p, Layout{Size: 0, Align: 8})
		assert.Equal(t, 0, h.Outstanding())
	})

	t.Run("rejects invalid layout", func(t *testing.T) {
		h := NewHeap()

		_, err := h.Allocate(Layout{Size: 8, Align: 3})
		assert.ErrorIs(t, err, ErrInvalidLayout)
	})

	t.Run("rejects oversized alignment", func(t *testing.T) {
		h := NewHeap()

		_, err := h.Allocate(Layout{Size: 8, Align: mem.MaxAlign * 2})
		assert.ErrorIs(t, err, ErrUnsupportedAlignment)
	})
}

func TestNewFree(t *testing.T) {
	type point struct {
		X, Y int64
	}

	t.Run("round trip", func(t *testing.T) {
		h := NewHeap()

		p, err := New(h, point{X: 1, Y: 2})
		require.NoError(t, err)
		assert.Equal(t, point{X: 1, Y: 2}, *p)
		assert.Equal(t, 1, h.Outstanding())

		Free(h, p)
		assert.Equal(t, 0, h.Outstanding())
	})

	t.Run("zeroed placement", func(t *testing.T) {
		h := NewHeap()

		p, err := NewZeroed[point](h)
		require.NoError(t, err)
		assert.Equal(t, point{}, *p)

		Free(h, p)
	})

	t.Run("free nil is a no-op", func(t *testing.T) {
		h := NewHeap()
		Free[point](h, nil)
		assert.Equal(t, 0, h.Outstanding())
	})
}

func TestGrowShrink(t *testing.T) {
	h := NewHeap()

	small := Layout{Size: 8, Align: 8}
	big := Layout{Size: 32, Align: 8}

	p, err := h.Allocate(small)
	require.NoError(t, err)
	*(*uint64)(p) = 0xdeadbeef

	t.Run("grow preserves contents", func(t *testing.T) {
		np, err := Grow(h, p, small, big)
		require.NoError(t, err)
		assert.Equal(t, uint64(0xdeadbeef), *(*uint64)(np))
		assert.Equal(t, 1, h.Outstanding())
		p = np
	})

	t.Run("shrink preserves prefix", func(t *testing.T) {
		np, err := Shrink(h, p, big, small)
		require.NoError(t, err)
		assert.Equal(t, uint64(0xdeadbeef), *(*uint64)(np))
		assert.Equal(t, 1, h.Outstanding())
		p = np
	})

	t.Run("grow to smaller layout fails", func(t *testing.T) {
		_, err := Grow(h, p, big, small)
		assert.ErrorIs(t, err, ErrInvalidLayout)
	})

	t.Run("shrink to larger layout fails", func(t *testing.T) {
		_, err := Shrink(h, p, small, big)
		assert.ErrorIs(t, err, ErrInvalidLayout)
	})

	h.Deallocate(p, small)
	assert.Equal(t, 0, h.Outstanding())
}

func TestTracking(t *testing.T) {
	tr := NewTracking(NewHeap())

	p1, err := tr.Allocate(Layout{Size: 16, Align: 8})
	require.NoError(t, err)
	p2, err := tr.Allocate(Layout{Size: 24, Align: 8})
	require.NoError(t, err)

	assert.Equal(t, int64(2), tr.Outstanding())
	assert.Equal(t, int64(40), tr.OutstandingBytes())
	assert.Equal(t, uint64(2), tr.Allocs())

	tr.Deallocate(p1, Layout{Size: 16, Align: 8})
	tr.Deallocate(p2, Layout{Size: 24, Align: 8})

	assert.Equal(t, int64(0), tr.Outstanding())
	assert.Equal(t, int64(0), tr.OutstandingBytes())
	assert.Equal(t, uint64(2), tr.Frees())

	// Zero-sized allocations are not counted.
	p, err := tr.Allocate(Layout{Size: 0, Align: 1})
	require.NoError(t, err)
	assert.True(t, IsZeroSized(p))
	assert.Equal(t, int64(0), tr.Outstanding())
}

func TestMemclr(t *testing.T) {
	b := make([]byte, 32)
	for i := range b {
		b[i] = 0xff
	}
	Memclr(unsafe.Pointer(&b[0]), len(b))
	for _, v := range b {
		assert.Zero(t, v)
	}
}

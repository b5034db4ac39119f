package alloc

import (
	"sync/atomic"
	"unsafe"
)

// Tracking wraps an Allocator and counts outstanding blocks and bytes. It is
// used by tests to verify that collections release every node, and is cheap
// enough to leave enabled around long-lived arenas.
//
// Tracking is as concurrency-safe as the wrapped allocator.
type Tracking struct {
	inner Allocator

	outstanding atomic.Int64
	bytes       atomic.Int64
	allocs      atomic.Uint64
	frees       atomic.Uint64
}

// NewTracking wraps inner with allocation accounting.
func NewTracking(inner Allocator) *Tracking {
	return &Tracking{inner: inner}
}

// Unwrap returns the wrapped allocator.
func (t *Tracking) Unwrap() Allocator { return t.inner }

// Allocate implements Allocator.
func (t *Tracking) Allocate(layout Layout) (unsafe.Pointer, error) {
	p, err := t.inner.Allocate(layout)
	if err != nil {
		return nil, err
	}
	if layout.Size > 0 {
		t.outstanding.Add(1)
		t.bytes.Add(int64(layout.Size))
		t.allocs.Add(1)
	}
	return p, nil
}

// Deallocate implements Allocator.
func (t *Tracking) Deallocate(p unsafe.Pointer, layout Layout) {
	if p == nil {
		return
	}
	t.inner.Deallocate(p, layout)
	if layout.Size > 0 {
		t.outstanding.Add(-1)
		t.bytes.Add(-int64(layout.Size))
		t.frees.Add(1)
	}
}

// Outstanding returns the number of blocks allocated but not yet freed.
func (t *Tracking) Outstanding() int64 { return t.outstanding.Load() }

// OutstandingBytes returns the payload bytes held by outstanding blocks.
func (t *Tracking) OutstandingBytes() int64 { return t.bytes.Load() }

// Allocs returns the cumulative allocation count.
func (t *Tracking) Allocs() uint64 { return t.allocs.Load() }

// Frees returns the cumulative deallocation count.
func (t *Tracking) Frees() uint64 { return t.frees.Load() }

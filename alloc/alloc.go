package alloc

import (
	"errors"
	"unsafe"

	"github.com/hupe1980/shmkit/internal/mem"
)

var (
	// ErrOutOfMemory is returned when the backing arena cannot satisfy an
	// allocation.
	ErrOutOfMemory = errors.New("alloc: out of memory")
	// ErrUnsupportedAlignment is returned when the requested alignment exceeds
	// what the arena can guarantee.
	ErrUnsupportedAlignment = errors.New("alloc: unsupported alignment")
	// ErrClosed is returned when allocating from a closed arena.
	ErrClosed = errors.New("alloc: arena is closed")
	// ErrInvalidLayout is returned for malformed layouts (negative size,
	// non-power-of-two alignment).
	ErrInvalidLayout = errors.New("alloc: invalid layout")
)

// Layout describes the size and alignment of a requested block.
type Layout struct {
	Size  int
	Align int
}

// LayoutOf returns the layout of T.
func LayoutOf[T any]() Layout {
	var zero T
	return Layout{
		Size:  int(unsafe.Sizeof(zero)),
		Align: int(unsafe.Alignof(zero)),
	}
}

// Valid reports whether the layout is well-formed.
func (l Layout) Valid() bool {
	return l.Size >= 0 && l.Align > 0 && l.Align&(l.Align-1) == 0
}

// Allocator is the capability for acquiring and releasing raw memory blocks.
//
// Deallocate must be called with the same layout that was passed to Allocate.
// This is a correctness precondition and is not checked.
type Allocator interface {
	// Allocate returns a block of at least layout.Size bytes aligned to
	// layout.Align, or an error. The block contents are unspecified.
	Allocate(layout Layout) (unsafe.Pointer, error)

	// Deallocate releases a block previously returned by Allocate. Arenas
	// that reclaim only in bulk may treat this as a no-op.
	Deallocate(p unsafe.Pointer, layout Layout)
}

// ZeroAllocator is implemented by arenas that can hand out zeroed blocks
// without an extra clearing pass.
type ZeroAllocator interface {
	Allocator
	AllocateZeroed(layout Layout) (unsafe.Pointer, error)
}

// Resizer is implemented by arenas that support in-place or optimized block
// resizing.
type Resizer interface {
	Allocator
	Grow(p unsafe.Pointer, from, to Layout) (unsafe.Pointer, error)
	Shrink(p unsafe.Pointer, from, to Layout) (unsafe.Pointer, error)
}

// MemoryAcquirer reserves memory from an external budget before an arena
// grows. resource.Controller implements it.
type MemoryAcquirer interface {
	AcquireMemory(bytes int64) error
	ReleaseMemory(bytes int64)
}

// zeroBlock backs every zero-sized allocation. It is aligned to mem.MaxAlign,
// so any representable alignment up to that bound is satisfied without
// touching the arena.
var zeroBlock = mem.AllocAligned(mem.MaxAlign, mem.MaxAlign)

// ZeroSized returns the placeholder block for zero-sized layouts, or an error
// if the alignment cannot be satisfied.
func ZeroSized(layout Layout) (unsafe.Pointer, error) {
	if layout.Align > mem.MaxAlign {
		return nil, ErrUnsupportedAlignment
	}
	return unsafe.Pointer(&zeroBlock[0]), nil //nolint:gosec // placeholder, never dereferenced
}

// IsZeroSized reports whether p is the shared zero-size placeholder.
func IsZeroSized(p unsafe.Pointer) bool {
	return p == unsafe.Pointer(&zeroBlock[0]) //nolint:gosec // identity check only
}

// AllocateZeroed returns a zeroed block from a, using the arena's native
// zeroed path when available and an explicit clearing pass otherwise.
func AllocateZeroed(a Allocator, layout Layout) (unsafe.Pointer, error) {
	if za, ok := a.(ZeroAllocator); ok {
		return za.AllocateZeroed(layout)
	}
	p, err := a.Allocate(layout)
	if err != nil {
		return nil, err
	}
	Memclr(p, layout.Size)
	return p, nil
}

// Grow moves a block to a larger layout, preserving its contents. Arenas
// implementing Resizer may avoid the copy.
func Grow(a Allocator, p unsafe.Pointer, from, to Layout) (unsafe.Pointer, error) {
	if to.Size < from.Size {
		return nil, ErrInvalidLayout
	}
	if r, ok := a.(Resizer); ok {
		return r.Grow(p, from, to)
	}
	return moveBlock(a, p, from, to)
}

// Shrink moves a block to a smaller layout, preserving the prefix that fits.
func Shrink(a Allocator, p unsafe.Pointer, from, to Layout) (unsafe.Pointer, error) {
	if to.Size > from.Size {
		return nil, ErrInvalidLayout
	}
	if r, ok := a.(Resizer); ok {
		return r.Shrink(p, from, to)
	}
	return moveBlock(a, p, from, to)
}

func moveBlock(a Allocator, p unsafe.Pointer, from, to Layout) (unsafe.Pointer, error) {
	np, err := a.Allocate(to)
	if err != nil {
		return nil, err
	}
	n := from.Size
	if to.Size < n {
		n = to.Size
	}
	if n > 0 {
		copy(unsafe.Slice((*byte)(np), n), unsafe.Slice((*byte)(p), n)) //nolint:gosec // block move
	}
	a.Deallocate(p, from)
	return np, nil
}

// Memclr zeroes size bytes starting at p.
func Memclr(p unsafe.Pointer, size int) {
	if size == 0 {
		return
	}
	b := unsafe.Slice((*byte)(p), size) //nolint:gosec // bounded by layout
	clear(b)
}

// New places v into memory obtained from a and returns a pointer to the
// now arena-owned value.
//
// The destination block is cleared before the value is written, so stale
// arena bytes are never interpreted as pointers by the runtime.
func New[T any](a Allocator, v T) (*T, error) {
	layout := LayoutOf[T]()
	p, err := a.Allocate(layout)
	if err != nil {
		return nil, err
	}
	Memclr(p, layout.Size)
	tp := (*T)(p)
	*tp = v
	return tp, nil
}

// NewZeroed places a zero value of T into memory obtained from a.
func NewZeroed[T any](a Allocator) (*T, error) {
	p, err := AllocateZeroed(a, LayoutOf[T]())
	if err != nil {
		return nil, err
	}
	return (*T)(p), nil
}

// Free releases a value previously placed with New or NewZeroed. The pointee
// is not finalized in any way; callers move data out before freeing.
func Free[T any](a Allocator, p *T) {
	if p == nil {
		return
	}
	a.Deallocate(unsafe.Pointer(p), LayoutOf[T]())
}

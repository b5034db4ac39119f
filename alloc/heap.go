package alloc

import (
	"sync"
	"unsafe"

	"github.com/hupe1980/shmkit/internal/mem"
)

// Heap is an Allocator backed by the Go heap. Every block is tracked so its
// backing array stays reachable until Deallocate, which makes Heap the safe
// default for process-local, non-arena use.
//
// Heap is safe for concurrent use.
type Heap struct {
	mu     sync.Mutex
	blocks map[unsafe.Pointer][]byte
}

// NewHeap creates a new heap-backed allocator.
func NewHeap() *Heap {
	return &Heap{blocks: make(map[unsafe.Pointer][]byte)}
}

// Allocate implements Allocator.
func (h *Heap) Allocate(layout Layout) (unsafe.Pointer, error) {
	if !layout.Valid() {
		return nil, ErrInvalidLayout
	}
	if layout.Size == 0 {
		return ZeroSized(layout)
	}
	if layout.Align > mem.MaxAlign {
		return nil, ErrUnsupportedAlignment
	}

	b := mem.AllocAligned(layout.Size, layout.Align)
	p := unsafe.Pointer(&b[0]) //nolint:gosec // aligned block start

	h.mu.Lock()
	h.blocks[p] = b
	h.mu.Unlock()

	return p, nil
}

// Deallocate implements Allocator.
func (h *Heap) Deallocate(p unsafe.Pointer, layout Layout) {
	if p == nil || layout.Size == 0 || IsZeroSized(p) {
		return
	}
	h.mu.Lock()
	delete(h.blocks, p)
	h.mu.Unlock()
}

// Outstanding returns the number of live blocks.
func (h *Heap) Outstanding() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.blocks)
}

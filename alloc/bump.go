package alloc

import (
	"unsafe"

	"github.com/hupe1980/shmkit/internal/mem"
)

const (
	// DefaultChunkSize is the default size of a bump arena chunk (64 KiB).
	DefaultChunkSize = 64 * 1024
	// chunkAlign is the base alignment of every chunk, bounding the largest
	// satisfiable allocation alignment.
	chunkAlign = mem.MaxAlign
)

// BumpStats tracks bump arena memory usage.
type BumpStats struct {
	BytesReserved uint64 // memory currently held in chunks and large blocks
	BytesUsed     uint64 // bytes handed out to callers
	BytesWasted   uint64 // alignment padding
	Allocs        uint64 // cumulative allocation count
	LargeBlocks   uint64 // live individually-freed blocks
}

// Bump is a request/config-scoped arena. Small allocations bump a pointer
// within fixed-size chunks and are reclaimed only by Reset or Close; blocks
// larger than half a chunk get their own backing array and are released
// individually by Deallocate.
//
// A Bump arena is single-owner: it must not be shared across goroutines or
// processes.
type Bump struct {
	chunkSize int
	threshold int
	acquirer  MemoryAcquirer

	chunks      [][]byte
	off         int // offset into the last chunk
	large       map[unsafe.Pointer]int
	largeBlocks [][]byte // roots the backing arrays of live large blocks
	closed      bool
	stats       BumpStats
}

// BumpOption configures a Bump arena.
type BumpOption func(*Bump)

// WithAcquirer makes the arena reserve chunk memory from an external budget
// before growing. Failed reservations surface as ErrOutOfMemory.
func WithAcquirer(acquirer MemoryAcquirer) BumpOption {
	return func(b *Bump) {
		b.acquirer = acquirer
	}
}

// NewBump creates a bump arena with the given chunk size. A chunkSize <= 0
// selects DefaultChunkSize. The first chunk is reserved eagerly so the first
// request allocation cannot fail on an empty arena unless the budget is
// already exhausted.
func NewBump(chunkSize int, opts ...BumpOption) (*Bump, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	b := &Bump{
		chunkSize: chunkSize,
		threshold: chunkSize / 2,
		large:     make(map[unsafe.Pointer]int),
	}

	for _, opt := range opts {
		opt(b)
	}

	if err := b.addChunk(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bump) addChunk() error {
	if err := b.acquire(b.chunkSize); err != nil {
		return err
	}
	b.chunks = append(b.chunks, mem.AllocAligned(b.chunkSize, chunkAlign))
	b.off = 0
	b.stats.BytesReserved += uint64(b.chunkSize)
	return nil
}

func (b *Bump) acquire(bytes int) error {
	if b.acquirer == nil {
		return nil
	}
	if err := b.acquirer.AcquireMemory(int64(bytes)); err != nil {
		return ErrOutOfMemory
	}
	return nil
}

func (b *Bump) release(bytes int) {
	if b.acquirer != nil {
		b.acquirer.ReleaseMemory(int64(bytes))
	}
}

// Allocate implements Allocator.
func (b *Bump) Allocate(layout Layout) (unsafe.Pointer, error) {
	if !layout.Valid() {
		return nil, ErrInvalidLayout
	}
	if b.closed {
		return nil, ErrClosed
	}
	if layout.Size == 0 {
		return ZeroSized(layout)
	}
	if layout.Align > chunkAlign {
		return nil, ErrUnsupportedAlignment
	}

	if layout.Size > b.threshold {
		return b.allocateLarge(layout)
	}

	cur := b.chunks[len(b.chunks)-1]
	off := mem.AlignUp(b.off, layout.Align)
	if off+layout.Size > len(cur) {
		if err := b.addChunk(); err != nil {
			return nil, err
		}
		cur = b.chunks[len(b.chunks)-1]
		off = 0
	}

	b.stats.BytesWasted += uint64(off - b.off)
	b.stats.BytesUsed += uint64(layout.Size)
	b.stats.Allocs++
	b.off = off + layout.Size

	return unsafe.Pointer(&cur[off]), nil //nolint:gosec // offset is in bounds
}

func (b *Bump) allocateLarge(layout Layout) (unsafe.Pointer, error) {
	if err := b.acquire(layout.Size); err != nil {
		return nil, err
	}
	block := mem.AllocAligned(layout.Size, chunkAlign)
	p := unsafe.Pointer(&block[0]) //nolint:gosec // aligned block start

	b.large[p] = layout.Size
	b.largeBlocks = append(b.largeBlocks, block)
	b.stats.BytesReserved += uint64(layout.Size)
	b.stats.BytesUsed += uint64(layout.Size)
	b.stats.Allocs++
	b.stats.LargeBlocks++
	return p, nil
}

// Deallocate implements Allocator. Small blocks are reclaimed only in bulk;
// large blocks are released immediately.
func (b *Bump) Deallocate(p unsafe.Pointer, layout Layout) {
	if p == nil || layout.Size == 0 || IsZeroSized(p) || b.closed {
		return
	}
	size, ok := b.large[p]
	if !ok {
		return // small block, reclaimed by Reset/Close
	}
	delete(b.large, p)
	for i, block := range b.largeBlocks {
		if unsafe.Pointer(&block[0]) == p { //nolint:gosec // identity check
			b.largeBlocks = append(b.largeBlocks[:i], b.largeBlocks[i+1:]...)
			break
		}
	}
	b.stats.BytesReserved -= uint64(size)
	b.stats.LargeBlocks--
	b.release(size)
}

// Reset reclaims every allocation in bulk, keeping the first chunk for reuse.
// All blocks handed out before Reset become invalid.
func (b *Bump) Reset() {
	if b.closed {
		return
	}
	freed := 0
	for i := 1; i < len(b.chunks); i++ {
		freed += len(b.chunks[i]) // capacity equals chunkSize
		b.chunks[i] = nil
	}
	b.chunks = b.chunks[:1]
	b.off = 0

	for p, size := range b.large {
		freed += size
		delete(b.large, p)
	}
	b.largeBlocks = nil

	b.release(freed)
	b.stats.BytesReserved = uint64(b.chunkSize)
	b.stats.BytesUsed = 0
	b.stats.BytesWasted = 0
	b.stats.LargeBlocks = 0
}

// Close destroys the arena, releasing every chunk and large block. The arena
// cannot be reused afterwards. Close is idempotent.
func (b *Bump) Close() {
	if b.closed {
		return
	}
	b.Reset()
	b.chunks = nil
	b.release(b.chunkSize)
	b.stats.BytesReserved = 0
	b.closed = true
}

// Stats returns the current arena statistics.
func (b *Bump) Stats() BumpStats {
	return b.stats
}

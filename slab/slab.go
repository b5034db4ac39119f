package slab

import (
	"errors"
	"math"
	"math/bits"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/shmkit/internal/mem"
	"github.com/hupe1980/shmkit/rwlock"
)

var (
	// ErrRegionTooSmall is returned when the region cannot hold the pool
	// header and at least one page.
	ErrRegionTooSmall = errors.New("slab: region too small")
	// ErrNotInitialized is returned by Attach on a region that holds no
	// ready pool.
	ErrNotInitialized = errors.New("slab: region not initialized")
	// ErrBadRegion is returned when the region contents do not look like a
	// pool created by this package.
	ErrBadRegion = errors.New("slab: unrecognized region contents")
	// ErrRegionTooLarge is returned when the region exceeds the offset
	// address space of the pool metadata.
	ErrRegionTooLarge = errors.New("slab: region too large")
	// ErrUnalignedRegion is returned when the region base is not
	// page-aligned.
	ErrUnalignedRegion = errors.New("slab: region base not page-aligned")
)

const (
	poolMagic = 0x534c4231 // "SLB1"

	pageSize  = 4096
	pageShift = 12

	minShift = 3  // smallest class: 8 bytes
	maxShift = 11 // largest class: 2048 bytes
	nClasses = maxShift - minShift + 1

	// MaxAlign is the largest alignment the pool can guarantee; pages are
	// page-aligned relative to the (page-aligned) region base.
	MaxAlign = pageSize
)

// Pool initialization states, stored in the region header.
const (
	stateEmpty uint32 = iota
	stateBuilding
	stateReady
)

// header sits at the start of the region. Offsets are region-relative;
// offset 0 (the header itself) doubles as the nil offset.
type header struct {
	magic uint32
	state atomic.Uint32

	mutex rwlock.Mutex // serializes everything below

	size  uint32 // region size in bytes
	next  uint32 // first never-carved page offset
	end   uint32 // first offset past usable memory
	runs  uint32 // free page-run list head
	data  uint32 // user payload slot, see SetData

	classes [nClasses]uint32 // free block list heads per size class

	allocs    uint64
	frees     uint64
	bytesUsed uint64
}

// Stats is a point-in-time snapshot of pool usage, shared by every process
// attached to the region.
type Stats struct {
	Allocs      uint64
	Frees       uint64
	Outstanding uint64
	BytesUsed   uint64
}

// Pool is a process-local handle to a slab pool inside a shared region.
// Handles are cheap; each mapping of the region gets its own.
type Pool struct {
	base unsafe.Pointer
	size int
	hdr  *header
}

// Init builds a pool inside the region, or attaches to the pool already
// built there. Construction happens exactly once per region even when Init
// races with other processes: losers wait for the winner and attach.
//
// The region base must be page-aligned (mappings from package shm are) so
// block alignment holds in absolute addresses; unaligned or oversized
// regions are rejected. A fresh region must be zero-filled, which both
// anonymous mappings and newly extended files guarantee.
func Init(data []byte) (*Pool, error) {
	p, err := handle(data)
	if err != nil {
		return nil, err
	}

	if p.hdr.state.CompareAndSwap(stateEmpty, stateBuilding) {
		p.hdr.magic = poolMagic
		p.hdr.size = uint32(len(data))
		p.hdr.next = uint32(alignUp(int(unsafe.Sizeof(header{})), pageSize))
		p.hdr.end = uint32(len(data) &^ (pageSize - 1))
		p.hdr.state.Store(stateReady)
		return p, nil
	}

	// Another process won the race; wait for it to finish building.
	for p.hdr.state.Load() != stateReady {
		runtime.Gosched()
	}
	return p.verify()
}

// Attach connects to a pool previously built in the region by Init.
func Attach(data []byte) (*Pool, error) {
	p, err := handle(data)
	if err != nil {
		return nil, err
	}
	if p.hdr.state.Load() != stateReady {
		return nil, ErrNotInitialized
	}
	return p.verify()
}

func handle(data []byte) (*Pool, error) {
	if len(data) < int(unsafe.Sizeof(header{}))+2*pageSize {
		return nil, ErrRegionTooSmall
	}
	if uint64(len(data)) > math.MaxUint32 {
		return nil, ErrRegionTooLarge
	}
	base := unsafe.Pointer(&data[0]) //nolint:gosec // region base
	if !mem.IsAligned(base, pageSize) {
		return nil, ErrUnalignedRegion
	}
	return &Pool{
		base: base,
		size: len(data),
		hdr:  (*header)(base),
	}, nil
}

func (p *Pool) verify() (*Pool, error) {
	if p.hdr.magic != poolMagic || int(p.hdr.size) != p.size {
		return nil, ErrBadRegion
	}
	return p, nil
}

// Pointer converts a region-relative offset to a pointer in this mapping.
func (p *Pool) Pointer(off uint32) unsafe.Pointer {
	if off == 0 {
		return nil
	}
	return unsafe.Add(p.base, uintptr(off))
}

// Offset converts a pointer into this mapping to a region-relative offset.
func (p *Pool) Offset(ptr unsafe.Pointer) uint32 {
	return uint32(uintptr(ptr) - uintptr(p.base))
}

// Data returns the user payload slot, a region-relative offset reserved for
// whatever the caller builds inside the pool (0 if unset).
func (p *Pool) Data() uint32 {
	return p.hdr.data
}

// SetData stores the user payload slot. Callers serialize SetData against
// concurrent initializers, typically by holding the pool lock.
func (p *Pool) SetData(off uint32) {
	p.hdr.data = off
}

// Stats returns a snapshot of pool usage.
func (p *Pool) Stats() Stats {
	p.hdr.mutex.Lock()
	defer p.hdr.mutex.Unlock()
	return Stats{
		Allocs:      p.hdr.allocs,
		Frees:       p.hdr.frees,
		Outstanding: p.hdr.allocs - p.hdr.frees,
		BytesUsed:   p.hdr.bytesUsed,
	}
}

// classFor returns the size class index for an effective block size, or -1
// if the request needs whole pages.
func classFor(effective int) int {
	shift := bits.Len(uint(effective - 1))
	if shift < minShift {
		shift = minShift
	}
	if shift > maxShift {
		return -1
	}
	return shift - minShift
}

func classSize(class int) int {
	return 1 << (class + minShift)
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

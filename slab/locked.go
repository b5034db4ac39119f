package slab

import (
	"unsafe"

	"github.com/hupe1980/shmkit/alloc"
)

func checkLayout(layout alloc.Layout) error {
	if !layout.Valid() {
		return alloc.ErrInvalidLayout
	}
	if layout.Align > MaxAlign {
		return alloc.ErrUnsupportedAlignment
	}
	return nil
}

// Allocate implements alloc.Allocator, taking the pool mutex for the
// duration of the call.
func (p *Pool) Allocate(layout alloc.Layout) (unsafe.Pointer, error) {
	if err := checkLayout(layout); err != nil {
		return nil, err
	}
	if layout.Size == 0 {
		return alloc.ZeroSized(layout)
	}

	p.hdr.mutex.Lock()
	defer p.hdr.mutex.Unlock()
	return p.allocateLocked(layout)
}

// Deallocate implements alloc.Allocator. Unlike the bump arena, freed slab
// blocks always return to the free lists.
func (p *Pool) Deallocate(ptr unsafe.Pointer, layout alloc.Layout) {
	if ptr == nil || layout.Size == 0 || alloc.IsZeroSized(ptr) {
		return
	}

	p.hdr.mutex.Lock()
	defer p.hdr.mutex.Unlock()
	p.deallocateLocked(ptr, layout)
}

// AllocateZeroed implements alloc.ZeroAllocator.
func (p *Pool) AllocateZeroed(layout alloc.Layout) (unsafe.Pointer, error) {
	ptr, err := p.Allocate(layout)
	if err != nil {
		return nil, err
	}
	alloc.Memclr(ptr, layout.Size)
	return ptr, nil
}

// Lock takes the pool mutex and returns a handle exposing the allocator
// capability without further locking. The handle is valid until Unlock.
func (p *Pool) Lock() *Locked {
	p.hdr.mutex.Lock()
	return &Locked{pool: p}
}

// Locked is a slab pool whose mutex is held by the caller. It batches
// several allocator operations under one critical section.
type Locked struct {
	pool *Pool
}

// Unlock releases the pool mutex. The handle must not be used afterwards.
func (l *Locked) Unlock() {
	pool := l.pool
	l.pool = nil
	pool.hdr.mutex.Unlock()
}

// Allocate implements alloc.Allocator on the already-locked pool.
func (l *Locked) Allocate(layout alloc.Layout) (unsafe.Pointer, error) {
	if err := checkLayout(layout); err != nil {
		return nil, err
	}
	if layout.Size == 0 {
		return alloc.ZeroSized(layout)
	}
	return l.pool.allocateLocked(layout)
}

// Deallocate implements alloc.Allocator on the already-locked pool.
func (l *Locked) Deallocate(ptr unsafe.Pointer, layout alloc.Layout) {
	if ptr == nil || layout.Size == 0 || alloc.IsZeroSized(ptr) {
		return
	}
	l.pool.deallocateLocked(ptr, layout)
}

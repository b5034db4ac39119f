package slab

import (
	"unsafe"

	"github.com/hupe1980/shmkit/alloc"
)

// runHeader is written into the first bytes of a free page run.
type runHeader struct {
	next   uint32 // offset of the next free run, 0 terminates
	npages uint32
}

// effectiveSize is the block size actually reserved for a layout. Allocating
// max(size, align) bytes guarantees the alignment, because class blocks are
// naturally aligned to their (power-of-two) size and page runs to pageSize.
func effectiveSize(layout alloc.Layout) int {
	if layout.Align > layout.Size {
		return layout.Align
	}
	return layout.Size
}

func pagesFor(size int) int {
	return (size + pageSize - 1) >> pageShift
}

func (p *Pool) allocateLocked(layout alloc.Layout) (unsafe.Pointer, error) {
	effective := effectiveSize(layout)

	if class := classFor(effective); class >= 0 {
		return p.allocBlock(class)
	}

	npages := pagesFor(effective)
	off, err := p.takePages(npages)
	if err != nil {
		return nil, err
	}
	p.hdr.allocs++
	p.hdr.bytesUsed += uint64(npages) << pageShift
	return p.Pointer(off), nil
}

func (p *Pool) deallocateLocked(ptr unsafe.Pointer, layout alloc.Layout) {
	effective := effectiveSize(layout)
	off := p.Offset(ptr)

	if class := classFor(effective); class >= 0 {
		*(*uint32)(ptr) = p.hdr.classes[class]
		p.hdr.classes[class] = off
		p.hdr.frees++
		p.hdr.bytesUsed -= uint64(classSize(class))
		return
	}

	npages := pagesFor(effective)
	p.freeRun(off, npages)
	p.hdr.frees++
	p.hdr.bytesUsed -= uint64(npages) << pageShift
}

// allocBlock pops a block from a size class, refilling the class from a
// fresh page when its free list is empty.
func (p *Pool) allocBlock(class int) (unsafe.Pointer, error) {
	if p.hdr.classes[class] == 0 {
		pageOff, err := p.takePages(1)
		if err != nil {
			return nil, err
		}

		// Chain every block of the page onto the class free list.
		size := classSize(class)
		for i := pageSize/size - 1; i >= 0; i-- {
			blockOff := pageOff + uint32(i*size)
			*(*uint32)(p.Pointer(blockOff)) = p.hdr.classes[class]
			p.hdr.classes[class] = blockOff
		}
	}

	head := p.hdr.classes[class]
	p.hdr.classes[class] = *(*uint32)(p.Pointer(head))

	p.hdr.allocs++
	p.hdr.bytesUsed += uint64(classSize(class))
	return p.Pointer(head), nil
}

// takePages returns the offset of npages contiguous pages, reusing a freed
// run first-fit and carving never-used pages otherwise.
func (p *Pool) takePages(npages int) (uint32, error) {
	// Requests beyond the whole region are rejected before any uint32
	// arithmetic, so page counts near 1<<20 cannot wrap the math below.
	if uint64(npages) > uint64(p.hdr.end)>>pageShift {
		return 0, alloc.ErrOutOfMemory
	}
	want := uint32(npages)

	prev := &p.hdr.runs
	for off := *prev; off != 0; {
		run := (*runHeader)(p.Pointer(off))
		if run.npages >= want {
			*prev = run.next
			if rest := run.npages - want; rest > 0 {
				p.freeRun(off+want<<pageShift, int(rest))
			}
			return off, nil
		}
		prev = &run.next
		off = run.next
	}

	off := p.hdr.next
	if uint64(off)+uint64(want)<<pageShift > uint64(p.hdr.end) {
		return 0, alloc.ErrOutOfMemory
	}
	p.hdr.next = off + want<<pageShift
	return off, nil
}

func (p *Pool) freeRun(off uint32, npages int) {
	run := (*runHeader)(p.Pointer(off))
	run.next = p.hdr.runs
	run.npages = uint32(npages)
	p.hdr.runs = off
}

// Package slab implements a size-classed allocator that lives entirely
// inside a caller-supplied shared memory region.
//
// All slab metadata (free lists, counters, the mutex word) is stored as
// region-relative offsets inside the region itself, so independent processes
// mapping the same region observe one consistent pool. Metadata mutation is
// serialized by a spin/yield mutex in the region header (rwlock.Mutex); no
// process-local lock is involved.
//
// Small requests are served from power-of-two size classes (8 B to 2 KiB)
// carved out of 4 KiB pages. Larger requests take whole page runs. Freed
// blocks always return to the free lists; freed runs are not coalesced.
package slab

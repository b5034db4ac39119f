// Package alloc defines the allocator capability shared by every arena in
// shmkit, plus the arenas that are not tied to shared memory.
//
// An Allocator hands out raw, sized, aligned blocks of memory. Collections in
// this module (queue.Queue, rbtree.Map) are generic over the Allocator and own
// every block they obtain from it. Allocation failure is always a recoverable
// error returned to the caller; no arena in this package panics on exhaustion.
//
// # GC Safety
//
// Arena blocks are not scanned by the Go garbage collector. A value placed
// into arena memory via New must not hold the only reference to GC-managed
// memory (slices, maps, pointers into the heap), unless the caller keeps that
// memory alive independently. Pointer-free values and string constants are
// always safe. The same constraint applies to arenas carved out of shared
// memory regions: see package slab.
package alloc

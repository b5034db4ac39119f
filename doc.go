// Package shmkit provides arena allocators, arena-owned collections, and
// cross-process synchronization primitives for Go.
//
// The building blocks live in small subpackages:
//
//   - alloc:  the Allocator capability, a chunked bump arena, a heap
//     allocator, and typed placement helpers.
//   - slab:   a size-classed allocator living entirely inside a
//     caller-supplied byte region, safe to share between mappings.
//   - shm:    anonymous and file-backed shared memory regions.
//   - queue:  an arena-owned intrusive doubly-linked list.
//   - rbtree: an arena-owned ordered map backed by a red-black tree.
//   - rwlock: a single-word spin/yield reader-writer lock that works across
//     mappings of the same memory.
//
// The root package composes them into Store, a concurrent key-value store
// living inside a shared memory region:
//
//	region, _ := shm.MapAnon(64 << 10)
//	defer region.Close()
//
//	store, _ := shmkit.Open[string, string](region.Bytes())
//	_ = store.Set("alpha", "1")
//	v, ok := store.Get("alpha")
//
// Opening the same region again attaches to the existing store; the payload
// is constructed exactly once per region regardless of how many views open
// it.
//
// # Memory Safety
//
// Arena-backed values are invisible to the garbage collector. Values stored
// in queues, maps, or stores backed by shared regions must not hold the sole
// reference to GC-managed memory; see the alloc package documentation.
package shmkit

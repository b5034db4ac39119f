// Package shm maps shared memory regions.
//
// Regions are mapped MAP_SHARED, so they stay visible to child processes
// created after the mapping (anonymous regions) or to any process mapping the
// same file (file-backed regions). A region is raw bytes; higher layers place
// a slab pool and their own data inside it (see packages slab and shmkit).
//
// Pointers into a region are only meaningful in address spaces where the
// region occupies the same base address, which holds for forked workers
// inheriting the mapping.
package shm

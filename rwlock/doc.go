// Package rwlock provides spin/yield locks whose entire state is a single
// atomic word, safe to place in memory mapped into more than one process.
//
// Go atomics follow the C/C++11 memory model, where lock-free atomic
// operations are address-free: operations on the same memory location through
// different mappings still synchronize. That makes these locks usable across
// process boundaries, unlike sync.Mutex and sync.RWMutex, which may park
// goroutines on process-local state.
//
// Acquisition never times out. A holder that crashes without releasing the
// lock starves all other acquirers permanently; callers needing bounded waits
// must wrap acquisition themselves.
package rwlock

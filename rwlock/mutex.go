package rwlock

import "sync/atomic"

// Mutex is an exclusive spin/yield lock over a single atomic word, used to
// serialize slab metadata mutation between processes. The zero value is an
// unlocked Mutex, usable directly inside zero-initialized shared memory.
type Mutex struct {
	state atomic.Uint64
}

// TryLock attempts to take the lock without waiting.
func (m *Mutex) TryLock() bool {
	return m.state.CompareAndSwap(0, 1)
}

// Lock acquires the lock, spinning with linear backoff and yielding until it
// is free.
func (m *Mutex) Lock() {
	for {
		if m.TryLock() {
			return
		}

		if multiCPU {
			for n := 0; n < spinMax; n++ {
				backoff(&m.state, n)

				if m.TryLock() {
					return
				}
			}
		}

		yield()
	}
}

// Unlock releases the lock. It is lock-free and cannot fail.
func (m *Mutex) Unlock() {
	m.state.Store(0)
}

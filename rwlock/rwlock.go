package rwlock

import (
	"math"
	"sync/atomic"
)

// wlock marks the state word as exclusively held. Any other non-zero value
// is the number of active readers.
const wlock = math.MaxUint64

// RwLock is a reader/writer lock co-located with the value it guards. The
// lock state is a single atomic word: 0 when unlocked, n for n active
// readers, or wlock for one exclusive writer. All transitions happen through
// compare-and-swap, so correctness depends only on atomic visibility of the
// word, not on thread or process identity.
//
// The zero value is an unlocked RwLock guarding the zero value of T, which
// makes it usable directly inside zero-initialized shared memory.
//
// There is no fairness guarantee: sustained reader traffic can starve a
// writer indefinitely.
type RwLock[T any] struct {
	state atomic.Uint64
	value T
}

// New returns an unlocked RwLock guarding v.
func New[T any](v T) *RwLock[T] {
	return &RwLock[T]{value: v}
}

// TryRLock attempts to take a shared hold without waiting.
func (l *RwLock[T]) TryRLock() bool {
	v := l.state.Load()
	if v == wlock {
		return false
	}
	return l.state.CompareAndSwap(v, v+1)
}

// RLock takes a shared hold, spinning with linear backoff and yielding until
// no writer holds the lock.
func (l *RwLock[T]) RLock() {
	for {
		if l.TryRLock() {
			return
		}

		if multiCPU {
			for n := 0; n < spinMax; n++ {
				backoff(&l.state, n)

				if l.TryRLock() {
					return
				}
			}
		}

		yield()
	}
}

// RUnlock releases a shared hold. It is lock-free and cannot fail.
func (l *RwLock[T]) RUnlock() {
	l.state.Add(^uint64(0)) // fetch-sub 1
}

// TryLock attempts to take the exclusive hold without waiting.
func (l *RwLock[T]) TryLock() bool {
	return l.state.CompareAndSwap(0, wlock)
}

// Lock takes the exclusive hold, spinning with linear backoff and yielding
// until no reader or writer holds the lock.
func (l *RwLock[T]) Lock() {
	for {
		if l.TryLock() {
			return
		}

		if multiCPU {
			for n := 0; n < spinMax; n++ {
				backoff(&l.state, n)

				if l.TryLock() {
					return
				}
			}
		}

		yield()
	}
}

// Unlock releases the exclusive hold. It is lock-free and cannot fail.
func (l *RwLock[T]) Unlock() {
	l.state.Store(0)
}

// Read acquires a shared hold and returns a guard for the value. Release the
// guard on every exit path, typically with defer.
func (l *RwLock[T]) Read() ReadGuard[T] {
	l.RLock()
	return ReadGuard[T]{l: l}
}

// Write acquires the exclusive hold and returns a guard for the value.
// Release the guard on every exit path, typically with defer.
func (l *RwLock[T]) Write() WriteGuard[T] {
	l.Lock()
	return WriteGuard[T]{l: l}
}

// View runs f with a shared hold on the value.
func (l *RwLock[T]) View(f func(*T)) {
	l.RLock()
	defer l.RUnlock()
	f(&l.value)
}

// Update runs f with the exclusive hold on the value.
func (l *RwLock[T]) Update(f func(*T)) {
	l.Lock()
	defer l.Unlock()
	f(&l.value)
}

// ReadGuard is a shared hold on an RwLock. The guarded value must be treated
// as read-only while only a ReadGuard is held.
type ReadGuard[T any] struct {
	l *RwLock[T]
}

// Value returns the guarded value.
func (g ReadGuard[T]) Value() *T { return &g.l.value }

// Release drops the shared hold.
func (g ReadGuard[T]) Release() { g.l.RUnlock() }

// WriteGuard is an exclusive hold on an RwLock.
type WriteGuard[T any] struct {
	l *RwLock[T]
}

// Value returns the guarded value.
func (g WriteGuard[T]) Value() *T { return &g.l.value }

// Release drops the exclusive hold.
func (g WriteGuard[T]) Release() { g.l.Unlock() }

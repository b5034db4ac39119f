package rwlock

import (
	"runtime"
	"sync/atomic"
)

// spinMax bounds the linearly growing busy-wait between CAS attempts before
// the waiter yields the processor.
const spinMax = 2048

// multiCPU gates busy-waiting: on a single CPU spinning cannot make the
// holder progress, so waiters go straight to yielding.
var multiCPU = runtime.NumCPU() > 1

// backoff busy-waits for roughly n iterations. The atomic load keeps the
// loop observable to the compiler and matches the cache-friendly re-read
// pattern of hardware spin loops.
func backoff(word *atomic.Uint64, n int) {
	for i := 0; i < n; i++ {
		_ = word.Load()
	}
}

// yield deschedules the calling goroutine, letting the lock holder run. This
// is a cooperative yield, not an OS block: no futex or kernel wait queue is
// involved, so it remains correct when the holder is another process.
func yield() {
	runtime.Gosched()
}

package rwlock

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRwLock_TryVariants(t *testing.T) {
	t.Run("try read fails under writer", func(t *testing.T) {
		var l RwLock[int]
		l.Lock()
		assert.False(t, l.TryRLock())
		l.Unlock()
		assert.True(t, l.TryRLock())
		l.RUnlock()
	})

	t.Run("try write fails under reader", func(t *testing.T) {
		var l RwLock[int]
		l.RLock()
		assert.False(t, l.TryLock())
		l.RUnlock()
		assert.True(t, l.TryLock())
		l.Unlock()
	})

	t.Run("readers share", func(t *testing.T) {
		var l RwLock[int]
		assert.True(t, l.TryRLock())
		assert.True(t, l.TryRLock())
		l.RUnlock()
		l.RUnlock()
	})
}

func TestRwLock_Exclusion(t *testing.T) {
	const (
		writers = 4
		readers = 8
		rounds  = 500
	)

	var (
		l       RwLock[int64]
		active  atomic.Int64 // writers currently inside the critical section
		reading atomic.Int64 // readers currently inside
		wg      sync.WaitGroup
	)

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				l.Lock()
				assert.Equal(t, int64(1), active.Add(1))
				assert.Equal(t, int64(0), reading.Load())
				l.value++
				active.Add(-1)
				l.Unlock()
			}
		}()
	}

	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				l.RLock()
				reading.Add(1)
				assert.Equal(t, int64(0), active.Load())
				reading.Add(-1)
				l.RUnlock()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, int64(writers*rounds), l.value)
}

func TestRwLock_Guards(t *testing.T) {
	l := New(42)

	g := l.Read()
	assert.Equal(t, 42, *g.Value())
	assert.False(t, l.TryLock())
	g.Release()

	w := l.Write()
	*w.Value() = 7
	assert.False(t, l.TryRLock())
	w.Release()

	v, _ := func() (int, bool) {
		g := l.Read()
		defer g.Release()
		return *g.Value(), true
	}()
	assert.Equal(t, 7, v)
}

func TestRwLock_ViewUpdate(t *testing.T) {
	l := New(0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Update(func(v *int) { *v++ })
			}
		}()
	}
	wg.Wait()

	l.View(func(v *int) {
		assert.Equal(t, 800, *v)
	})
}

func TestMutex(t *testing.T) {
	t.Run("try lock", func(t *testing.T) {
		var m Mutex
		require.True(t, m.TryLock())
		assert.False(t, m.TryLock())
		m.Unlock()
		assert.True(t, m.TryLock())
		m.Unlock()
	})

	t.Run("mutual exclusion", func(t *testing.T) {
		var (
			m      Mutex
			inside atomic.Int64
			count  int
			wg     sync.WaitGroup
		)

		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 200; j++ {
					m.Lock()
					assert.Equal(t, int64(1), inside.Add(1))
					count++
					inside.Add(-1)
					m.Unlock()
				}
			}()
		}

		wg.Wait()
		assert.Equal(t, 1600, count)
	})
}

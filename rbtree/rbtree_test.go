package rbtree

import (
	"cmp"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/shmkit/alloc"
)

func newTestMap[K cmp.Ordered, V any](t *testing.T, opts ...Option[K]) (*Map[K, V], *alloc.Tracking) {
	t.Helper()

	tr := alloc.NewTracking(alloc.NewHeap())
	m, err := New[K, V](tr, opts...)
	require.NoError(t, err)
	return m, tr
}

func TestMap_Basic(t *testing.T) {
	t.Run("insert get remove", func(t *testing.T) {
		m, _ := newTestMap[string, int](t)
		defer m.Close()

		_, err := m.Insert("alpha", 1)
		require.NoError(t, err)
		_, err = m.Insert("beta", 2)
		require.NoError(t, err)
		assert.Equal(t, 2, m.Len())

		v, ok := m.Get("alpha")
		require.True(t, ok)
		assert.Equal(t, 1, v)

		assert.True(t, m.Contains("beta"))
		assert.False(t, m.Contains("gamma"))

		v, ok = m.Remove("alpha")
		require.True(t, ok)
		assert.Equal(t, 1, v)
		assert.Equal(t, 1, m.Len())
		assert.False(t, m.Contains("alpha"))
	})

	t.Run("insert replaces in place", func(t *testing.T) {
		m, tr := newTestMap[string, int](t)
		defer m.Close()

		p1, err := m.Insert("k", 1)
		require.NoError(t, err)
		p2, err := m.Insert("k", 2)
		require.NoError(t, err)

		assert.Equal(t, p1, p2) // same entry, value replaced
		assert.Equal(t, 1, m.Len())
		assert.Equal(t, int64(2), tr.Outstanding()) // sentinel + one node

		v, _ := m.Get("k")
		assert.Equal(t, 2, v)
	})

	t.Run("lookup allows in-place mutation", func(t *testing.T) {
		m, _ := newTestMap[string, int](t)
		defer m.Close()

		_, err := m.Insert("k", 1)
		require.NoError(t, err)

		p := m.Lookup("k")
		require.NotNil(t, p)
		*p = 99

		v, _ := m.Get("k")
		assert.Equal(t, 99, v)

		assert.Nil(t, m.Lookup("missing"))
	})

	t.Run("remove missing key", func(t *testing.T) {
		m, _ := newTestMap[string, int](t)
		defer m.Close()

		_, ok := m.Remove("nope")
		assert.False(t, ok)
	})

	t.Run("remove entry moves key and value out", func(t *testing.T) {
		m, _ := newTestMap[string, int](t)
		defer m.Close()

		_, err := m.Insert("k", 7)
		require.NoError(t, err)

		k, v, ok := m.RemoveEntry("k")
		require.True(t, ok)
		assert.Equal(t, "k", k)
		assert.Equal(t, 7, v)
	})
}

func TestMap_ModelCheck(t *testing.T) {
	// Random op sequence checked against a plain Go map.
	m, tr := newTestMap[int, int](t)
	defer m.Close()

	model := make(map[int]int)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 5000; i++ {
		k := rng.Intn(200)
		switch rng.Intn(3) {
		case 0, 1:
			v := rng.Int()
			_, err := m.Insert(k, v)
			require.NoError(t, err)
			model[k] = v
		case 2:
			gotV, gotOK := m.Remove(k)
			wantV, wantOK := model[k]
			assert.Equal(t, wantOK, gotOK)
			if wantOK {
				assert.Equal(t, wantV, gotV)
			}
			delete(model, k)
		}

		require.Equal(t, len(model), m.Len())
	}

	for k, want := range model {
		got, ok := m.Get(k)
		require.True(t, ok, "key %d missing", k)
		assert.Equal(t, want, got)
	}

	// One node per model entry plus the sentinel.
	assert.Equal(t, int64(len(model)+1), tr.Outstanding())
}

func TestMap_Collisions(t *testing.T) {
	// A constant hash forces every key onto the comparison tie-break path.
	m, _ := newTestMap[string, int](t, WithHasher[string](func(string) uint64 { return 42 }))
	defer m.Close()

	keys := []string{"delta", "alpha", "echo", "bravo", "charlie"}
	for i, k := range keys {
		_, err := m.Insert(k, i)
		require.NoError(t, err)
	}

	for i, k := range keys {
		v, ok := m.Get(k)
		require.True(t, ok, "key %q missing", k)
		assert.Equal(t, i, v)
	}

	// With all hashes equal, structural order is plain key order.
	var got []string
	for k := range m.All() {
		got = append(got, k)
	}
	want := append([]string(nil), keys...)
	sort.Strings(want)
	assert.Equal(t, want, got)

	for _, k := range keys {
		_, ok := m.Remove(k)
		require.True(t, ok)
	}
	assert.True(t, m.IsEmpty())
}

func TestMap_Iterators(t *testing.T) {
	m, _ := newTestMap[int, int](t)
	defer m.Close()

	for i := 0; i < 100; i++ {
		_, err := m.Insert(i, i)
		require.NoError(t, err)
	}

	t.Run("all visits every entry once", func(t *testing.T) {
		seen := make(map[int]int)
		for k, v := range m.All() {
			seen[k] = v
		}
		assert.Len(t, seen, 100)
	})

	t.Run("order is stable between mutation-free passes", func(t *testing.T) {
		var first, second []int
		for k := range m.All() {
			first = append(first, k)
		}
		for k := range m.All() {
			second = append(second, k)
		}
		assert.Equal(t, first, second)
	})

	t.Run("entries yields mutable pointers", func(t *testing.T) {
		for _, p := range m.Entries() {
			*p++
		}
		v, _ := m.Get(0)
		assert.Equal(t, 1, v)
	})

	t.Run("early break", func(t *testing.T) {
		n := 0
		for range m.All() {
			n++
			break
		}
		assert.Equal(t, 1, n)
	})
}

func TestMap_Clear(t *testing.T) {
	m, tr := newTestMap[int, int](t)
	defer m.Close()

	for i := 0; i < 64; i++ {
		_, err := m.Insert(i, i)
		require.NoError(t, err)
	}

	m.Clear()
	assert.True(t, m.IsEmpty())
	assert.Equal(t, int64(1), tr.Outstanding()) // only the sentinel remains

	m.Clear() // idempotent
	assert.Equal(t, 0, m.Len())

	// The cleared map is reusable.
	_, err := m.Insert(7, 7)
	require.NoError(t, err)
	v, ok := m.Get(7)
	require.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestMap_Close(t *testing.T) {
	m, tr := newTestMap[int, int](t)

	for i := 0; i < 16; i++ {
		_, err := m.Insert(i, i)
		require.NoError(t, err)
	}

	m.Close()
	m.Close() // idempotent

	assert.Equal(t, int64(0), tr.Outstanding())
	assert.Equal(t, int64(0), tr.OutstandingBytes())
}

func TestMap_FailedInsertLeavesTreeUnchanged(t *testing.T) {
	b, err := alloc.NewBump(0)
	require.NoError(t, err)

	m, err := New[int, int](b)
	require.NoError(t, err)

	_, err = m.Insert(1, 1)
	require.NoError(t, err)

	b.Close()

	_, err = m.Insert(2, 2)
	assert.ErrorIs(t, err, alloc.ErrClosed)
	assert.Equal(t, 1, m.Len())
	assert.True(t, m.Contains(1))
	assert.False(t, m.Contains(2))

	// Replacing an existing value needs no allocation and still works.
	_, err = m.Insert(1, 10)
	require.NoError(t, err)
	v, _ := m.Get(1)
	assert.Equal(t, 10, v)
}

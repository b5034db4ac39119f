package shmkit

import (
	"cmp"
	"unsafe"

	"github.com/hupe1980/shmkit/alloc"
	"github.com/hupe1980/shmkit/rbtree"
	"github.com/hupe1980/shmkit/rwlock"
	"github.com/hupe1980/shmkit/slab"
)

// payload is what a Store keeps inside its region: a map guarded by a
// reader-writer lock, both living in slab-managed memory.
type payload[K cmp.Ordered, V any] = rwlock.RwLock[rbtree.Map[K, V]]

// Store is a concurrent map of K to V living inside a shared byte region,
// typically one obtained from package shm. Every view of the region sees the
// same entries; operations synchronize through a lock stored alongside the
// data, so views in different goroutines (or different mappings of the same
// memory) stay consistent.
//
// A Store handle itself is a cheap process-local value and may be used from
// multiple goroutines.
type Store[K cmp.Ordered, V any] struct {
	pool   *slab.Pool
	lock   *payload[K, V]
	logger *Logger
}

// Open initializes or attaches to the store inside data. The first open of a
// region constructs the map and its lock; later opens attach to them. All
// views of one region must agree on K, V, and the hasher.
//
// Views are limited to one address space lineage: Open rewires
// process-local state inside the region, so opening the same region from
// independently started processes is unsupported. Goroutines in one process
// and forked children inheriting the mapping are fine.
//
// data must stay mapped for as long as the store is in use.
func Open[K cmp.Ordered, V any](data []byte, opts ...Option[K]) (*Store[K, V], error) {
	o := options[K]{
		logger: NoopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	var mapOpts []rbtree.Option[K]
	if o.hash != nil {
		mapOpts = append(mapOpts, rbtree.WithHasher[K](o.hash))
	}

	pool, err := slab.Init(data)
	if err != nil {
		return nil, err
	}

	// The pool mutex serializes payload construction between racing opens;
	// the data slot records whether a winner already built it.
	l := pool.Lock()
	created := false
	if pool.Data() == 0 {
		lk, err := alloc.NewZeroed[payload[K, V]](l)
		if err != nil {
			l.Unlock()
			return nil, err
		}

		g := lk.Write()
		err = rbtree.Init(g.Value(), l, mapOpts...)
		g.Release()
		if err != nil {
			alloc.Free(l, lk)
			l.Unlock()
			return nil, err
		}

		pool.SetData(pool.Offset(unsafe.Pointer(lk)))
		created = true
	}
	off := pool.Data()
	l.Unlock()

	lk := (*payload[K, V])(pool.Pointer(off)) //nolint:gosec // offset recorded by a prior open

	// Function and interface values inside the shared map are only valid in
	// the process that wrote them; repoint them at this view's pool.
	g := lk.Write()
	g.Value().Rebind(pool, mapOpts...)
	g.Release()

	o.logger.WithRegionSize(len(data)).Debug("store opened", "initialized", created)

	return &Store[K, V]{
		pool:   pool,
		lock:   lk,
		logger: o.logger,
	}, nil
}

// Set maps k to v, replacing any existing value.
func (s *Store[K, V]) Set(k K, v V) error {
	g := s.lock.Write()
	defer g.Release()

	_, err := g.Value().Insert(k, v)
	return err
}

// Get returns the value mapped to k.
func (s *Store[K, V]) Get(k K) (V, bool) {
	g := s.lock.Read()
	defer g.Release()

	return g.Value().Get(k)
}

// Contains reports whether k is present.
func (s *Store[K, V]) Contains(k K) bool {
	g := s.lock.Read()
	defer g.Release()

	return g.Value().Contains(k)
}

// Delete removes k and returns the value that was mapped to it.
func (s *Store[K, V]) Delete(k K) (V, bool) {
	g := s.lock.Write()
	defer g.Release()

	return g.Value().Remove(k)
}

// Clear removes every entry, returning their memory to the region.
func (s *Store[K, V]) Clear() {
	g := s.lock.Write()
	defer g.Release()

	g.Value().Clear()
}

// Len returns the number of entries.
func (s *Store[K, V]) Len() int {
	g := s.lock.Read()
	defer g.Release()

	return g.Value().Len()
}

// IsEmpty reports whether the store contains no entries.
func (s *Store[K, V]) IsEmpty() bool {
	return s.Len() == 0
}

// View runs fn with shared (read) access to the underlying map. fn must not
// mutate the map and must not retain it after returning.
func (s *Store[K, V]) View(fn func(m *rbtree.Map[K, V])) {
	g := s.lock.Read()
	defer g.Release()

	fn(g.Value())
}

// Update runs fn with exclusive (write) access to the underlying map. fn
// must not retain the map after returning.
func (s *Store[K, V]) Update(fn func(m *rbtree.Map[K, V])) {
	g := s.lock.Write()
	defer g.Release()

	fn(g.Value())
}

// Stats reports allocation statistics of the store's region.
func (s *Store[K, V]) Stats() slab.Stats {
	return s.pool.Stats()
}

// Close drops this view's handle. The store itself stays in the region for
// other views; use Destroy to tear it down. Close is idempotent.
func (s *Store[K, V]) Close() {
	if s.pool == nil {
		return
	}

	st := s.pool.Stats()
	s.logger.Debug("store closed",
		"allocs", st.Allocs,
		"frees", st.Frees,
		"bytes_used", st.BytesUsed,
	)

	s.pool = nil
	s.lock = nil
}

// Destroy removes every entry and releases the map and its lock back to the
// region, resetting it to the freshly-initialized state. No view may use the
// store afterwards.
func (s *Store[K, V]) Destroy() {
	if s.pool == nil {
		return
	}

	g := s.lock.Write()
	m := g.Value()
	m.Close()
	g.Release()

	l := s.pool.Lock()
	s.pool.SetData(0)
	alloc.Free(l, s.lock)
	l.Unlock()

	s.logger.Debug("store destroyed")

	s.pool = nil
	s.lock = nil
}

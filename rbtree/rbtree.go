// Package rbtree implements an arena-owned ordered map backed by a
// red-black tree.
//
// Entries are ordered by a 64-bit hash of the key, with direct key
// comparison breaking ties, so the tree balances over machine-word
// comparisons while colliding keys remain individually reachable. Iteration
// follows this internal order: it is deterministic and stable between
// mutations, but it is not the natural order of K.
//
// The map exclusively owns every entry; Clear and Close release them back to
// the allocator.
package rbtree

import (
	"cmp"
	"iter"

	"github.com/hupe1980/shmkit/alloc"
)

// Map is an ordered map of K to V whose entries are carved from an
// allocator. The zero Map is not usable; construct with New or Init.
//
// A Map is not safe for concurrent use; callers guard shared instances, see
// rwlock.RwLock.
type Map[K cmp.Ordered, V any] struct {
	root     *node[K, V]
	sentinel *node[K, V] // shared leaf, arena-owned
	len      int
	alloc    alloc.Allocator
	hash     func(K) uint64
}

// Option configures a Map at construction.
type Option[K cmp.Ordered] func(*config[K])

type config[K cmp.Ordered] struct {
	hash func(K) uint64
}

// WithHasher overrides the ordering-key hash. Keys that compare equal must
// hash equally. Mainly useful to force collisions in tests.
func WithHasher[K cmp.Ordered](hash func(K) uint64) Option[K] {
	return func(c *config[K]) {
		c.hash = hash
	}
}

// New creates an empty map that carves its entries from a.
func New[K cmp.Ordered, V any](a alloc.Allocator, opts ...Option[K]) (*Map[K, V], error) {
	m := &Map[K, V]{}
	if err := Init(m, a, opts...); err != nil {
		return nil, err
	}
	return m, nil
}

// Init initializes an empty map in place, allocating its sentinel leaf from
// a. It is used to construct a Map inside arena memory, e.g. in a shared
// region guarded by an rwlock.RwLock.
func Init[K cmp.Ordered, V any](m *Map[K, V], a alloc.Allocator, opts ...Option[K]) error {
	var c config[K]
	for _, opt := range opts {
		opt(&c)
	}
	if c.hash == nil {
		c.hash = hasherFor[K]()
	}

	s, err := alloc.NewZeroed[node[K, V]](a)
	if err != nil {
		return err
	}
	s.color = black
	s.left, s.right, s.parent = s, s, s

	m.root = s
	m.sentinel = s
	m.len = 0
	m.alloc = a
	m.hash = c.hash
	return nil
}

// Rebind repoints the map at a process-local allocator and hash, leaving the
// tree itself untouched. A map living inside a shared region carries function
// and interface values that only the constructing process can use; callers
// attaching to such a region rebind before the first operation.
func (m *Map[K, V]) Rebind(a alloc.Allocator, opts ...Option[K]) {
	var c config[K]
	for _, opt := range opts {
		opt(&c)
	}
	if c.hash == nil {
		c.hash = hasherFor[K]()
	}
	m.alloc = a
	m.hash = c.hash
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	return m.len
}

// IsEmpty reports whether the map contains no entries.
func (m *Map[K, V]) IsEmpty() bool {
	return m.len == 0
}

// Insert adds k mapped to v, replacing the value in place if k is already
// present, and returns a pointer to the map-owned value. On allocation
// failure the tree is left unchanged.
func (m *Map[K, V]) Insert(k K, v V) (*V, error) {
	h := m.hash(k)
	if n := m.lookup(h, k); n != nil {
		n.v = v
		return &n.v, nil
	}

	n, err := alloc.New(m.alloc, node[K, V]{key: h, k: k, v: v})
	if err != nil {
		return nil, err
	}
	n.left = m.sentinel
	n.right = m.sentinel
	n.color = red

	m.link(n)
	m.insertFixup(n)
	m.len++
	return &n.v, nil
}

// Get returns the value mapped to k.
func (m *Map[K, V]) Get(k K) (V, bool) {
	if n := m.lookup(m.hash(k), k); n != nil {
		return n.v, true
	}
	var zero V
	return zero, false
}

// Lookup returns a pointer to the map-owned value for k, or nil. The
// pointer allows in-place mutation and stays valid until the entry is
// removed.
func (m *Map[K, V]) Lookup(k K) *V {
	if n := m.lookup(m.hash(k), k); n != nil {
		return &n.v
	}
	return nil
}

// Contains reports whether k is present.
func (m *Map[K, V]) Contains(k K) bool {
	return m.lookup(m.hash(k), k) != nil
}

// Remove deletes k and returns the value that was mapped to it.
func (m *Map[K, V]) Remove(k K) (V, bool) {
	_, v, ok := m.RemoveEntry(k)
	return v, ok
}

// RemoveEntry deletes k and returns the stored key and value. Both are
// moved out of the entry before its memory is released.
func (m *Map[K, V]) RemoveEntry(k K) (K, V, bool) {
	n := m.lookup(m.hash(k), k)
	if n == nil {
		var zeroK K
		var zeroV V
		return zeroK, zeroV, false
	}

	m.unlink(n)
	key, val := n.k, n.v
	alloc.Free(m.alloc, n)
	m.len--
	return key, val, true
}

// Clear removes and releases every entry. The map remains a valid empty
// tree and can be reused; repeated calls are no-ops.
func (m *Map[K, V]) Clear() {
	// Post-order walk over parent links; no rebalancing is needed since the
	// whole tree goes away.
	n := m.root
	for n != m.sentinel {
		if n.left != m.sentinel {
			n = n.left
			continue
		}
		if n.right != m.sentinel {
			n = n.right
			continue
		}

		p := n.parent
		if p != m.sentinel {
			if p.left == n {
				p.left = m.sentinel
			} else {
				p.right = m.sentinel
			}
		}
		alloc.Free(m.alloc, n)
		n = p
	}
	m.root = m.sentinel
	m.len = 0
}

// All returns an iterator over the entries in the tree's internal order.
// The iterator is valid only while the map is not structurally mutated.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if m.len == 0 {
			return
		}
		for n := m.min(m.root); n != m.sentinel; n = m.next(n) {
			if !yield(n.k, n.v) {
				return
			}
		}
	}
}

// Entries returns an iterator over keys and pointers to the map-owned
// values, allowing in-place value mutation during iteration.
func (m *Map[K, V]) Entries() iter.Seq2[K, *V] {
	return func(yield func(K, *V) bool) {
		if m.len == 0 {
			return
		}
		for n := m.min(m.root); n != m.sentinel; n = m.next(n) {
			if !yield(n.k, &n.v) {
				return
			}
		}
	}
}

// Close clears the map and releases the sentinel leaf. The map is unusable
// afterwards. Close is idempotent.
func (m *Map[K, V]) Close() {
	if m.sentinel == nil {
		return
	}
	m.Clear()
	alloc.Free(m.alloc, m.sentinel)
	m.root = nil
	m.sentinel = nil
}

// lookup walks the tree comparing the derived hash first and the actual key
// on hash equality, descending the same side insert uses so colliding keys
// stay reachable.
func (m *Map[K, V]) lookup(h uint64, k K) *node[K, V] {
	n := m.root
	for n != m.sentinel {
		switch {
		case h < n.key:
			n = n.left
		case h > n.key:
			n = n.right
		default:
			switch c := cmp.Compare(k, n.k); {
			case c < 0:
				n = n.left
			case c > 0:
				n = n.right
			default:
				return n
			}
		}
	}
	return nil
}

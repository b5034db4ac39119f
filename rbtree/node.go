package rbtree

import "cmp"

type color uint8

const (
	red color = iota
	black
)

// node is a tree entry. Links point at other arena-owned nodes or at the
// map's sentinel leaf.
type node[K cmp.Ordered, V any] struct {
	left   *node[K, V]
	right  *node[K, V]
	parent *node[K, V]
	key    uint64 // ordering key: hash of k
	color  color
	k      K
	v      V
}

// less orders nodes by hash key, breaking ties by key comparison. Fully
// equal nodes never meet here; Insert resolves existing keys beforehand.
func less[K cmp.Ordered, V any](a, b *node[K, V]) bool {
	if a.key != b.key {
		return a.key < b.key
	}
	return cmp.Compare(a.k, b.k) < 0
}

// link wires a detached red node into its leaf position.
func (m *Map[K, V]) link(n *node[K, V]) {
	y := m.sentinel
	x := m.root
	for x != m.sentinel {
		y = x
		if less(n, x) {
			x = x.left
		} else {
			x = x.right
		}
	}

	n.parent = y
	switch {
	case y == m.sentinel:
		m.root = n
	case less(n, y):
		y.left = n
	default:
		y.right = n
	}
}

func (m *Map[K, V]) leftRotate(x *node[K, V]) {
	y := x.right
	x.right = y.left
	if y.left != m.sentinel {
		y.left.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == m.sentinel:
		m.root = y
	case x == x.parent.left:
		x.parent.left = y
	default:
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (m *Map[K, V]) rightRotate(x *node[K, V]) {
	y := x.left
	x.left = y.right
	if y.right != m.sentinel {
		y.right.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == m.sentinel:
		m.root = y
	case x == x.parent.right:
		x.parent.right = y
	default:
		x.parent.left = y
	}
	y.right = x
	x.parent = y
}

// insertFixup restores the red-black invariants after linking a red node.
func (m *Map[K, V]) insertFixup(z *node[K, V]) {
	for z.parent.color == red {
		if z.parent == z.parent.parent.left {
			y := z.parent.parent.right
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.right {
					z = z.parent
					m.leftRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				m.rightRotate(z.parent.parent)
			}
		} else {
			y := z.parent.parent.left
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.left {
					z = z.parent
					m.rightRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				m.leftRotate(z.parent.parent)
			}
		}
	}
	m.root.color = black
}

// transplant replaces the subtree rooted at u with the one rooted at v.
func (m *Map[K, V]) transplant(u, v *node[K, V]) {
	switch {
	case u.parent == m.sentinel:
		m.root = v
	case u == u.parent.left:
		u.parent.left = v
	default:
		u.parent.right = v
	}
	v.parent = u.parent
}

// unlink removes z from the tree, restoring the red-black invariants. The
// node itself is untouched; the caller moves the entry out and frees it.
func (m *Map[K, V]) unlink(z *node[K, V]) {
	y := z
	yColor := y.color
	var x *node[K, V]

	switch {
	case z.left == m.sentinel:
		x = z.right
		m.transplant(z, z.right)
	case z.right == m.sentinel:
		x = z.left
		m.transplant(z, z.left)
	default:
		y = m.min(z.right)
		yColor = y.color
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			m.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		m.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	if yColor == black {
		m.deleteFixup(x)
	}
}

// deleteFixup restores the red-black invariants after unlinking a black
// node; x carries the extra blackness.
func (m *Map[K, V]) deleteFixup(x *node[K, V]) {
	for x != m.root && x.color == black {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == red {
				w.color = black
				x.parent.color = red
				m.leftRotate(x.parent)
				w = x.parent.right
			}
			if w.left.color == black && w.right.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.right.color == black {
					w.left.color = black
					w.color = red
					m.rightRotate(w)
					w = x.parent.right
				}
				w.color = x.parent.color
				x.parent.color = black
				w.right.color = black
				m.leftRotate(x.parent)
				x = m.root
			}
		} else {
			w := x.parent.left
			if w.color == red {
				w.color = black
				x.parent.color = red
				m.rightRotate(x.parent)
				w = x.parent.left
			}
			if w.right.color == black && w.left.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.left.color == black {
					w.right.color = black
					w.color = red
					m.leftRotate(w)
					w = x.parent.left
				}
				w.color = x.parent.color
				x.parent.color = black
				w.left.color = black
				m.rightRotate(x.parent)
				x = m.root
			}
		}
	}
	x.color = black
}

// min returns the leftmost node of the subtree rooted at n.
func (m *Map[K, V]) min(n *node[K, V]) *node[K, V] {
	for n.left != m.sentinel {
		n = n.left
	}
	return n
}

// next returns the in-order successor of n, or the sentinel.
func (m *Map[K, V]) next(n *node[K, V]) *node[K, V] {
	if n.right != m.sentinel {
		return m.min(n.right)
	}
	p := n.parent
	for p != m.sentinel && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

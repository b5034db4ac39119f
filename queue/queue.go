// Package queue implements an arena-owned doubly-linked list.
//
// The list is intrusive: each node carries its links and its value in one
// allocation obtained from the queue's allocator, wired into a circular ring
// through a sentinel head node. The queue exclusively owns every node; Close
// releases them all back to the allocator.
package queue

import (
	"iter"
	"unsafe"

	"github.com/hupe1980/shmkit/alloc"
)

// link is the intrusive portion of a node. It is the first field of entry,
// so a link pointer converts to its entry without pointer arithmetic.
type link struct {
	prev *link
	next *link
}

type entry[T any] struct {
	link link
	item T
}

func entryOf[T any](l *link) *entry[T] {
	return (*entry[T])(unsafe.Pointer(l)) //nolint:gosec // link is the first field
}

// Queue is a doubly-linked list of T backed by an allocator. The zero Queue
// is not usable; construct with New.
//
// A Queue is single-owner and not safe for concurrent use.
type Queue[T any] struct {
	head  *link // sentinel, arena-owned
	len   int
	alloc alloc.Allocator
}

// New creates an empty queue that carves its nodes from a.
func New[T any](a alloc.Allocator) (*Queue[T], error) {
	head, err := alloc.New(a, link{})
	if err != nil {
		return nil, err
	}
	head.prev = head
	head.next = head
	return &Queue[T]{head: head, alloc: a}, nil
}

// Len returns the number of elements in the queue.
func (q *Queue[T]) Len() int {
	return q.len
}

// IsEmpty reports whether the queue contains no elements.
func (q *Queue[T]) IsEmpty() bool {
	return q.len == 0
}

// PushBack appends v and returns a pointer to the queue-owned value. On
// allocation failure the queue is left unchanged.
func (q *Queue[T]) PushBack(v T) (*T, error) {
	return q.insert(v, q.head.prev, q.head)
}

// PushFront prepends v and returns a pointer to the queue-owned value. On
// allocation failure the queue is left unchanged.
func (q *Queue[T]) PushFront(v T) (*T, error) {
	return q.insert(v, q.head, q.head.next)
}

func (q *Queue[T]) insert(v T, prev, next *link) (*T, error) {
	e, err := alloc.New(q.alloc, entry[T]{item: v})
	if err != nil {
		return nil, err
	}

	e.link.prev = prev
	e.link.next = next
	prev.next = &e.link
	next.prev = &e.link
	q.len++

	return &e.item, nil
}

// PopBack removes and returns the last element.
func (q *Queue[T]) PopBack() (T, bool) {
	if q.len == 0 {
		var zero T
		return zero, false
	}
	return q.remove(q.head.prev), true
}

// PopFront removes and returns the first element.
func (q *Queue[T]) PopFront() (T, bool) {
	if q.len == 0 {
		var zero T
		return zero, false
	}
	return q.remove(q.head.next), true
}

// remove unlinks a node, moves its value out and releases the node.
func (q *Queue[T]) remove(l *link) T {
	l.prev.next = l.next
	l.next.prev = l.prev
	q.len--

	e := entryOf[T](l)
	v := e.item
	alloc.Free(q.alloc, e)
	return v
}

// Front returns a pointer to the first element, or nil if the queue is
// empty.
func (q *Queue[T]) Front() *T {
	if q.len == 0 {
		return nil
	}
	return &entryOf[T](q.head.next).item
}

// Back returns a pointer to the last element, or nil if the queue is empty.
func (q *Queue[T]) Back() *T {
	if q.len == 0 {
		return nil
	}
	return &entryOf[T](q.head.prev).item
}

// All returns an iterator over pointers to the queued values, front to back
// in insertion order. The iterator is valid only while the queue is not
// structurally mutated.
func (q *Queue[T]) All() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for l := q.head.next; l != q.head; l = l.next {
			if !yield(&entryOf[T](l).item) {
				return
			}
		}
	}
}

// Values returns an iterator over copies of the queued values, front to
// back.
func (q *Queue[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for l := q.head.next; l != q.head; l = l.next {
			if !yield(entryOf[T](l).item) {
				return
			}
		}
	}
}

// Close pops and releases every element, then frees the sentinel. The queue
// is unusable afterwards. Close is idempotent.
func (q *Queue[T]) Close() {
	if q.head == nil {
		return
	}
	for q.len > 0 {
		q.remove(q.head.next)
	}
	alloc.Free(q.alloc, q.head)
	q.head = nil
}

package shm

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrClosed is returned when accessing a closed region.
	ErrClosed = errors.New("shm: region is closed")
	// ErrInvalidSize is returned when the requested region size is not
	// positive.
	ErrInvalidSize = errors.New("shm: invalid region size")
	// ErrUnsupported is returned on platforms without shared memory support.
	ErrUnsupported = errors.New("shm: not supported on this platform")
)

// Region is a shared memory mapping. It owns the underlying byte range and
// is responsible for unmapping it.
type Region struct {
	data   []byte
	closed atomic.Bool
	unmap  func([]byte) error
}

// MapAnon creates an anonymous shared mapping of the given size. The mapping
// is inherited by child processes forked after the call.
func MapAnon(size int) (*Region, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	data, unmap, err := osMapAnon(size)
	if err != nil {
		return nil, err
	}
	return &Region{data: data, unmap: unmap}, nil
}

// MapFile maps the file at path as a shared read-write region of the given
// size, creating and extending the file as needed. Every process mapping the
// same file observes the same bytes.
func MapFile(path string, size int) (*Region, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	data, unmap, err := osMapFile(path, size)
	if err != nil {
		return nil, err
	}
	return &Region{data: data, unmap: unmap}, nil
}

// Bytes returns the mapped byte range. The slice is valid only until Close.
func (r *Region) Bytes() []byte {
	if r.closed.Load() {
		return nil
	}
	return r.data
}

// Size returns the size of the region in bytes.
func (r *Region) Size() int {
	return len(r.data)
}

// Close unmaps the region. It is idempotent. The region's contents remain
// visible to other processes still mapping it.
func (r *Region) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	if r.unmap != nil && r.data != nil {
		return r.unmap(r.data)
	}
	return nil
}

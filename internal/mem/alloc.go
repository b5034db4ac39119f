package mem

import (
	"unsafe"
)

// MaxAlign is the largest alignment AllocAligned can guarantee (one cache
// line on common platforms).
const MaxAlign = 64

// AllocAligned allocates a byte slice of the given size whose first byte is
// aligned to align. align must be a power of two not larger than MaxAlign.
//
// Note: This function allocates slightly more memory than requested to ensure
// alignment. The underlying array is kept alive by the returned slice.
func AllocAligned(size, align int) []byte {
	if size == 0 {
		return nil
	}
	if align <= 0 {
		align = 1
	}

	// Allocate size + align so an aligned offset always exists within the
	// buffer, then shift the start pointer up to align-1 bytes.
	buf := make([]byte, size+align)

	ptr := unsafe.Pointer(&buf[0]) //nolint:gosec // unsafe is required for memory alignment
	addr := uintptr(ptr)
	offset := (uintptr(align) - (addr & (uintptr(align) - 1))) & (uintptr(align) - 1)

	return buf[offset : offset+uintptr(size) : offset+uintptr(size)]
}

// IsAligned reports whether p is aligned to align bytes.
func IsAligned(p unsafe.Pointer, align int) bool {
	return uintptr(p)&(uintptr(align)-1) == 0
}

// AlignUp rounds n up to the next multiple of align. align must be a power
// of two.
func AlignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

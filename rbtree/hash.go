package rbtree

import (
	"cmp"
	"encoding/binary"
	"math"
	"reflect"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// hasherFor builds the default ordering-key hash for K. Strings hash over
// their contents; numeric keys hash over their in-memory representation,
// with floats widened and negative zero collapsed so keys that compare equal
// always hash equal.
func hasherFor[K cmp.Ordered]() func(K) uint64 {
	var zero K
	switch reflect.TypeOf(zero).Kind() {
	case reflect.String:
		return func(k K) uint64 {
			return xxhash.Sum64String(*(*string)(unsafe.Pointer(&k))) //nolint:gosec // K's underlying type is string
		}
	case reflect.Float32:
		return func(k K) uint64 {
			return hashFloat(float64(*(*float32)(unsafe.Pointer(&k)))) //nolint:gosec // K's underlying type is float32
		}
	case reflect.Float64:
		return func(k K) uint64 {
			return hashFloat(*(*float64)(unsafe.Pointer(&k))) //nolint:gosec // K's underlying type is float64
		}
	default:
		return func(k K) uint64 {
			b := unsafe.Slice((*byte)(unsafe.Pointer(&k)), unsafe.Sizeof(k)) //nolint:gosec // fixed-size integer representation
			return xxhash.Sum64(b)
		}
	}
}

func hashFloat(f float64) uint64 {
	if f == 0 {
		f = 0 // collapse -0.0 and +0.0 into one hash
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(f))
	return xxhash.Sum64(b[:])
}

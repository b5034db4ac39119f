package shmkit

import "cmp"

type options[K cmp.Ordered] struct {
	logger *Logger
	hash   func(K) uint64
}

// Option configures Store open behavior.
type Option[K cmp.Ordered] func(*options[K])

// WithLogger configures the logger used for open/close diagnostics.
//
// If nil is passed, logging is disabled.
func WithLogger[K cmp.Ordered](logger *Logger) Option[K] {
	return func(o *options[K]) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithHasher overrides the ordering-key hash of the underlying map. Keys
// that compare equal must hash equally, and every view of a region must use
// the same hash.
func WithHasher[K cmp.Ordered](hash func(K) uint64) Option[K] {
	return func(o *options[K]) {
		o.hash = hash
	}
}

// Package engine defines the foreign call surface consumed by the binding
// layer and its implementations. The real engine is a shared library loaded
// at runtime; tests use an instrumented in-process fake. All failures
// crossing this boundary are converted into the layer's error taxonomy here,
// so no raw engine error codes escape upward.
package engine

import (
	"time"
)

// Handle is an opaque foreign connection handle. The zero value is invalid.
// A Handle is exclusively owned by the connection that opened it; no other
// component may release it.
type Handle uintptr

// Descriptor is the raw structure the engine returns for one query: a view
// into the foreign result buffer plus the statistics and error slot captured
// from the same call. The buffer behind Data stays valid until the
// descriptor is passed to Free exactly once.
type Descriptor struct {
	// Data is a zero-copy view into the engine-owned result buffer.
	Data []byte

	// RowsRead and BytesRead count storage rows and bytes scanned by the
	// query.
	RowsRead  uint64
	BytesRead uint64

	// Elapsed is the engine-measured execution time.
	Elapsed time.Duration

	// ErrMessage carries the engine's diagnostic verbatim; empty means the
	// call succeeded.
	ErrMessage string

	// raw is the foreign result pointer, zero for non-foreign descriptors.
	raw uintptr
}

// Engine is the abstract contract of the embedded query engine. The engine
// is not assumed reentrant; callers serialize Query invocations per Handle.
type Engine interface {
	// Open invokes the foreign open call with an argv-style vector and
	// returns the connection handle. A nil foreign handle is reported as
	// ErrConnectionFailed.
	Open(argv []string) (Handle, error)

	// Query runs one SQL text (possibly a multi-statement batch) against the
	// handle and returns the raw result descriptor. Query blocks for the
	// duration of the foreign call; there is no cancellation.
	Query(h Handle, sql, format string) (*Descriptor, error)

	// Close releases the foreign connection handle. Callers guarantee at
	// most one Close per handle.
	Close(h Handle)

	// Free releases the foreign result buffer behind a descriptor. Callers
	// guarantee at most one Free per descriptor.
	Free(d *Descriptor)
}

var _ Engine = (*Library)(nil)

// Package result owns the engine-allocated result buffer for one query and
// exposes read-only views over it. The buffer is released exactly once; all
// views are invalidated by Release.
package result

import (
	"bytes"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/chembed/chembed/internal/engine"
	"github.com/chembed/chembed/internal/errors"
)

// Result wraps one foreign result buffer plus the statistics snapshot taken
// at construction time. Statistics remain readable after Release; data views
// do not. Result is single-owner: it is never cloned, only derived copies of
// the data may outlive it.
type Result struct {
	eng engine.Engine
	d   *engine.Descriptor

	rowsRead    uint64
	bytesRead   uint64
	elapsed     time.Duration
	fingerprint uint64

	released atomic.Bool
}

// New wraps a raw descriptor. The statistics are copied out immediately so
// they carry no foreign-pointer dependency afterwards. The descriptor must
// have an empty error slot; errored calls never construct a Result.
func New(eng engine.Engine, d *engine.Descriptor, fingerprint uint64) *Result {
	return &Result{
		eng:         eng,
		d:           d,
		rowsRead:    d.RowsRead,
		bytesRead:   d.BytesRead,
		elapsed:     d.Elapsed,
		fingerprint: fingerprint,
	}
}

// Bytes returns a zero-copy view of the result data. The view is valid only
// until Release; after Release it is nil.
func (r *Result) Bytes() []byte {
	if r.released.Load() {
		return nil
	}
	return r.d.Data
}

// Text returns the result data as a string, failing on invalid UTF-8 rather
// than silently substituting.
func (r *Result) Text() (string, error) {
	buf := r.Bytes()
	if !utf8.Valid(buf) {
		return "", &errors.BindingError{
			Op:      "Text",
			Message: "result data is not valid UTF-8",
		}
	}
	return string(buf), nil
}

// TextLossy returns the result data as a string, replacing invalid UTF-8
// sequences with the Unicode replacement character. Intended for diagnostic
// and log paths, never for programmatic parsing.
func (r *Result) TextLossy() string {
	return strings.ToValidUTF8(string(r.Bytes()), string(utf8.RuneError))
}

// Records decodes an Arrow-format result into its record batches. The query
// must have been executed with the Arrow output format. Returned records are
// retained copies and stay valid after Release; callers release each record.
func (r *Result) Records() ([]arrow.Record, error) {
	rdr, err := ipc.NewReader(bytes.NewReader(r.Bytes()), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("decoding arrow result: %w", err)
	}
	defer rdr.Release()

	var records []arrow.Record
	for rdr.Next() {
		rec := rdr.Record()
		rec.Retain()
		records = append(records, rec)
	}
	if err := rdr.Err(); err != nil {
		for _, rec := range records {
			rec.Release()
		}
		return nil, fmt.Errorf("decoding arrow result: %w", err)
	}
	return records, nil
}

// RowsRead returns the number of storage rows the query scanned.
func (r *Result) RowsRead() uint64 { return r.rowsRead }

// BytesRead returns the number of storage bytes the query scanned.
func (r *Result) BytesRead() uint64 { return r.bytesRead }

// Elapsed returns the engine-measured execution time.
func (r *Result) Elapsed() time.Duration { return r.elapsed }

// Fingerprint returns the stable hash of the SQL text that produced this
// result, used to attribute results to calls in logs and tests.
func (r *Result) Fingerprint() uint64 { return r.fingerprint }

// Release frees the underlying foreign buffer. Safe to call more than once;
// only the first call reaches the engine.
func (r *Result) Release() {
	if r.released.CompareAndSwap(false, true) {
		r.eng.Free(r.d)
	}
}

// Package conn owns the foreign connection handle. A Conn is the only
// component allowed to hold or release the handle; it serializes all engine
// calls against it and guarantees the foreign close happens at most once.
package conn

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/chembed/chembed/internal/argv"
	"github.com/chembed/chembed/internal/engine"
	"github.com/chembed/chembed/internal/errors"
	"github.com/chembed/chembed/internal/result"
)

// Conn is an open connection to the embedded engine. The engine is not
// assumed reentrant, so queries and close are serialized behind a mutex; no
// two foreign calls against the same handle are ever in flight concurrently.
type Conn struct {
	mu     sync.Mutex
	eng    engine.Engine
	handle engine.Handle
	closed bool
}

// Open invokes the foreign open call with the serialized argument vector.
// This is the only allocation point for a foreign connection.
func Open(eng engine.Engine, argvec []string) (*Conn, error) {
	if len(argvec) == 0 {
		return nil, errors.NewInvalidInputError("Open", "argument vector is empty")
	}

	h, err := eng.Open(argvec)
	if err != nil {
		return nil, err
	}
	if h == 0 {
		return nil, errors.ErrConnectionFailed
	}

	return &Conn{eng: eng, handle: h}, nil
}

// Query runs one SQL text (possibly a ;-delimited batch) in the given output
// format. Querying a closed connection is a caller bug and is rejected
// before any foreign call is made. The call blocks until the engine returns;
// there is no cancellation and no timeout.
func (c *Conn) Query(sql string, format argv.OutputFormat) (*result.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.NewClosedError("Query")
	}

	d, err := c.eng.Query(c.handle, sql, format.String())
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, errors.ErrNoResult
	}
	if d.ErrMessage != "" {
		// Errored calls carry only the error state; the buffer is returned
		// to the engine before the caller sees anything.
		msg := d.ErrMessage
		c.eng.Free(d)
		return nil, errors.NewQueryError(msg)
	}

	return result.New(c.eng, d, xxhash.Sum64String(sql)), nil
}

// Close releases the foreign handle. Idempotent for callers; the underlying
// engine close runs exactly once across the connection's lifetime.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.eng.Close(c.handle)
	c.handle = 0
	return nil
}

// Closed reports whether the connection has been closed.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

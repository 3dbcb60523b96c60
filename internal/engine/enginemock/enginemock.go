// Package enginemock provides an instrumented in-process fake of the engine
// call surface. It validates handle discipline, scripts query responses, and
// counts every open, query, close, and free so tests can assert the
// release-exactly-once and never-after-close invariants.
package enginemock

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chembed/chembed/internal/engine"
	chembederrors "github.com/chembed/chembed/internal/errors"
)

var (
	// ErrUnknownHandle is returned when a query references a handle the mock
	// never issued or has already closed.
	ErrUnknownHandle = errors.New("unknown or closed handle")
)

// Response defines the scripted outcome of one query call.
type Response struct {
	// Data is the result payload returned on success.
	Data string

	// RowsRead, BytesRead, and Elapsed populate the result statistics.
	RowsRead  uint64
	BytesRead uint64
	Elapsed   time.Duration

	// Err, when non-empty, is surfaced through the descriptor's error slot
	// the way the real engine reports query failures.
	Err string
}

// Config represents the configuration for creating a Mock instance.
type Config struct {
	// FailOpen makes every Open call report a nil foreign handle.
	FailOpen bool

	// Script computes the response for a query. When nil, queries succeed
	// with an empty payload.
	Script func(sql, format string) Response
}

var _ engine.Engine = (*Mock)(nil)

// Mock simulates the engine with validation and configurable responses.
type Mock struct {
	failOpen bool
	script   func(sql, format string) Response

	mu         sync.Mutex
	nextHandle uintptr
	open       map[engine.Handle][]string
	freed      map[*engine.Descriptor]int

	opens       int
	queries     int
	closes      int
	frees       int
	doubleFrees int
}

// New creates a new instance of the Mock based on the provided Config.
func New(config Config) *Mock {
	return &Mock{
		failOpen:   config.FailOpen,
		script:     config.Script,
		nextHandle: 1,
		open:       make(map[engine.Handle][]string),
		freed:      make(map[*engine.Descriptor]int),
	}
}

// ScriptResults builds a Script that answers queries from a fixed table and
// fails any query not present in it, mirroring an engine that rejects
// unknown statements.
func ScriptResults(results map[string]Response) func(sql, format string) Response {
	return func(sql, format string) Response {
		if r, ok := results[sql]; ok {
			return r
		}
		return Response{Err: fmt.Sprintf("Unknown statement: %s", sql)}
	}
}

// Open issues a fresh handle, or reports a connection failure when the mock
// is configured to fail.
func (m *Mock) Open(argvec []string) (engine.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.opens++
	if m.failOpen {
		return 0, chembederrors.ErrConnectionFailed
	}

	h := engine.Handle(m.nextHandle)
	m.nextHandle++
	m.open[h] = append([]string(nil), argvec...)
	return h, nil
}

// Query runs the scripted response for a live handle.
func (m *Mock) Query(h engine.Handle, sql, format string) (*engine.Descriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.open[h]; !ok {
		return nil, ErrUnknownHandle
	}
	m.queries++

	resp := Response{}
	if m.script != nil {
		resp = m.script(sql, format)
	}

	d := &engine.Descriptor{
		RowsRead:   resp.RowsRead,
		BytesRead:  resp.BytesRead,
		Elapsed:    resp.Elapsed,
		ErrMessage: resp.Err,
	}
	if resp.Err == "" {
		d.Data = []byte(resp.Data)
	}
	m.freed[d] = 0
	return d, nil
}

// Close releases a handle. Closing twice is recorded through the counter but
// tolerated, matching the foreign contract of at-most-once callers.
func (m *Mock) Close(h engine.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closes++
	delete(m.open, h)
}

// Free releases a descriptor and records double frees.
func (m *Mock) Free(d *engine.Descriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.frees++
	if n, ok := m.freed[d]; ok && n > 0 {
		m.doubleFrees++
	}
	m.freed[d]++
	d.Data = nil
}

// OpenCount reports how many open calls reached the mock.
func (m *Mock) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// QueryCount reports how many query calls reached the mock.
func (m *Mock) QueryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries
}

// CloseCount reports how many close calls reached the mock.
func (m *Mock) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// FreeCount reports how many free calls reached the mock.
func (m *Mock) FreeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frees
}

// DoubleFreeCount reports descriptors freed more than once. Any non-zero
// value is a correctness violation in the layer under test.
func (m *Mock) DoubleFreeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doubleFrees
}

// OpenHandles reports handles that have been opened but not yet closed.
func (m *Mock) OpenHandles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.open)
}

// ArgsFor returns the argv vector a live handle was opened with.
func (m *Mock) ArgsFor(h engine.Handle) ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	args, ok := m.open[h]
	return args, ok
}

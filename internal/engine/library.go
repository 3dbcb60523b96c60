//go:build darwin || linux

package engine

import (
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/chembed/chembed/internal/errors"
)

// libEnvVar overrides the shared library search path.
const libEnvVar = "CHDB_LIB_PATH"

// libCandidates are tried in order when no explicit path is configured.
var libCandidates = []string{
	"libchdb.so",
	"libchdb.dylib",
	"/usr/local/lib/libchdb.so",
	"/usr/lib/libchdb.so",
	"/usr/local/lib/libchdb.dylib",
	"/opt/homebrew/lib/libchdb.dylib",
}

// Library binds the engine's shared library at runtime. Symbols are resolved
// lazily on first use so that importing the package does not require the
// library to be installed.
type Library struct {
	path   string
	logger *slog.Logger

	once    sync.Once
	loadErr error

	connect       func(int32, unsafe.Pointer) uintptr
	query         func(uintptr, string, string) uintptr
	closeConn     func(uintptr)
	destroyResult func(uintptr)
	resultBuffer  func(uintptr) uintptr
	resultLength  func(uintptr) uintptr
	resultElapsed func(uintptr) float64
	resultRows    func(uintptr) uint64
	resultBytes   func(uintptr) uint64
	resultError   func(uintptr) uintptr
}

// NewLibrary returns a Library bound to an explicit shared library path.
func NewLibrary(path string) *Library {
	return &Library{path: path, logger: slog.Default()}
}

// Default returns a Library that resolves the shared library from
// CHDB_LIB_PATH or the conventional install locations.
func Default() *Library {
	return &Library{logger: slog.Default()}
}

func (l *Library) load() error {
	l.once.Do(func() {
		candidates := libCandidates
		if l.path != "" {
			candidates = []string{l.path}
		} else if env := os.Getenv(libEnvVar); env != "" {
			candidates = []string{env}
		}

		var handle uintptr
		var lastErr error
		for _, candidate := range candidates {
			h, err := purego.Dlopen(candidate, purego.RTLD_NOW|purego.RTLD_GLOBAL)
			if err != nil {
				lastErr = err
				continue
			}
			l.logger.Debug("engine library loaded", "path", candidate)
			handle = h
			break
		}
		if handle == 0 {
			l.loadErr = &errors.BindingError{
				Op:      "Load",
				Message: "engine library not found",
				Cause:   lastErr,
			}
			return
		}

		purego.RegisterLibFunc(&l.connect, handle, "chdb_connect")
		purego.RegisterLibFunc(&l.query, handle, "chdb_query")
		purego.RegisterLibFunc(&l.closeConn, handle, "chdb_close_conn")
		purego.RegisterLibFunc(&l.destroyResult, handle, "chdb_destroy_query_result")
		purego.RegisterLibFunc(&l.resultBuffer, handle, "chdb_result_buffer")
		purego.RegisterLibFunc(&l.resultLength, handle, "chdb_result_length")
		purego.RegisterLibFunc(&l.resultElapsed, handle, "chdb_result_elapsed")
		purego.RegisterLibFunc(&l.resultRows, handle, "chdb_result_rows_read")
		purego.RegisterLibFunc(&l.resultBytes, handle, "chdb_result_bytes_read")
		purego.RegisterLibFunc(&l.resultError, handle, "chdb_result_error")
	})
	return l.loadErr
}

// Open invokes the engine's connect call with a C-style argc/argv pair.
func (l *Library) Open(argvec []string) (Handle, error) {
	if err := l.load(); err != nil {
		return 0, err
	}

	// Null-terminated copies of each argument, plus the pointer vector the
	// engine reads them through. Both must stay alive across the call.
	buffers := make([][]byte, len(argvec))
	pointers := make([]unsafe.Pointer, len(argvec))
	for i, arg := range argvec {
		buffers[i] = append([]byte(arg), 0)
		pointers[i] = unsafe.Pointer(&buffers[i][0])
	}

	var argp unsafe.Pointer
	if len(pointers) > 0 {
		argp = unsafe.Pointer(&pointers[0])
	}

	outer := l.connect(int32(len(argvec)), argp)
	runtime.KeepAlive(buffers)
	runtime.KeepAlive(pointers)

	// The engine hands back a pointer to the connection slot; both the slot
	// and the connection it holds must be non-null.
	if outer == 0 {
		return 0, errors.ErrConnectionFailed
	}
	if *(*uintptr)(unsafe.Pointer(outer)) == 0 {
		return 0, errors.ErrConnectionFailed
	}

	return Handle(outer), nil
}

// Query runs one SQL text against the handle and snapshots the result
// statistics out of the foreign descriptor.
func (l *Library) Query(h Handle, sql, format string) (*Descriptor, error) {
	if err := l.load(); err != nil {
		return nil, err
	}

	inner := *(*uintptr)(unsafe.Pointer(uintptr(h)))
	raw := l.query(inner, sql, format)
	if raw == 0 {
		return nil, errors.ErrNoResult
	}

	d := &Descriptor{
		RowsRead:   l.resultRows(raw),
		BytesRead:  l.resultBytes(raw),
		Elapsed:    time.Duration(l.resultElapsed(raw) * float64(time.Second)),
		ErrMessage: goString(l.resultError(raw)),
		raw:        raw,
	}

	if d.ErrMessage == "" {
		if buf, n := l.resultBuffer(raw), l.resultLength(raw); buf != 0 && n > 0 {
			d.Data = unsafe.Slice((*byte)(unsafe.Pointer(buf)), n)
		}
	}

	return d, nil
}

// Close releases the foreign connection handle.
func (l *Library) Close(h Handle) {
	if h == 0 {
		return
	}
	l.closeConn(uintptr(h))
}

// Free releases the foreign result buffer behind a descriptor.
func (l *Library) Free(d *Descriptor) {
	if d == nil || d.raw == 0 {
		return
	}
	l.destroyResult(d.raw)
	d.raw = 0
	d.Data = nil
}

// goString copies a NUL-terminated C string. Returns "" for a nil pointer.
func goString(p uintptr) string {
	if p == 0 {
		return ""
	}
	var n int
	for *(*byte)(unsafe.Pointer(p + uintptr(n))) != 0 {
		n++
	}
	if n == 0 {
		return ""
	}
	return string(unsafe.Slice((*byte)(unsafe.Pointer(p)), n))
}

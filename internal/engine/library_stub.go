//go:build !(darwin || linux)

package engine

import (
	"github.com/chembed/chembed/internal/errors"
)

// Library is a placeholder on platforms without runtime library loading
// support. Every operation reports the library as unavailable.
type Library struct {
	path string
}

// NewLibrary returns a Library bound to an explicit shared library path.
func NewLibrary(path string) *Library {
	return &Library{path: path}
}

// Default returns the platform stub.
func Default() *Library {
	return &Library{}
}

// Open reports the engine library as unavailable on this platform.
func (l *Library) Open(argvec []string) (Handle, error) {
	return 0, errors.ErrLibraryNotFound
}

// Query reports the engine library as unavailable on this platform.
func (l *Library) Query(h Handle, sql, format string) (*Descriptor, error) {
	return nil, errors.ErrLibraryNotFound
}

// Close is a no-op on this platform.
func (l *Library) Close(h Handle) {}

// Free is a no-op on this platform.
func (l *Library) Free(d *Descriptor) {}

// Package errors provides standardized error types for the chembed binding
// layer. All failures crossing the foreign engine boundary are converted into
// one of the types defined here; no raw engine error codes escape the layer.
package errors

import (
	"fmt"
)

// BindingError represents a failure inside the binding layer itself, such as
// an engine that could not be loaded or a data directory that could not be
// prepared.
type BindingError struct {
	Op      string // Operation name (e.g., "Open", "Build", "Serialize")
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *BindingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap returns the underlying cause for error wrapping support
func (e *BindingError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is()
func (e *BindingError) Is(target error) bool {
	if be, ok := target.(*BindingError); ok {
		return e.Op == be.Op && e.Message == be.Message
	}
	return false
}

// QueryError carries a diagnostic reported by the engine for a query. The
// message is the engine's own text, passed through verbatim.
type QueryError struct {
	Message string
}

// Error implements the error interface
func (e *QueryError) Error() string {
	return e.Message
}

// ProgrammingError indicates misuse of the binding layer's own contract, such
// as querying a closed connection or passing duplicate conflicting arguments.
// It signals a caller bug rather than a runtime condition and is kept as a
// distinct type so tests can assert on it separately from engine failures.
type ProgrammingError struct {
	Op      string
	Message string
}

// Error implements the error interface
func (e *ProgrammingError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Is implements error equality checking for errors.Is()
func (e *ProgrammingError) Is(target error) bool {
	if pe, ok := target.(*ProgrammingError); ok {
		return e.Op == pe.Op && e.Message == pe.Message
	}
	return false
}

// Common error constructors for consistent error creation

// NewConnectionFailedError creates an error for a foreign open call that
// returned a nil handle.
func NewConnectionFailedError(op string, cause error) *BindingError {
	return &BindingError{
		Op:      op,
		Message: "connection failed",
		Cause:   cause,
	}
}

// NewQueryError wraps an engine diagnostic without reinterpreting it.
func NewQueryError(message string) *QueryError {
	return &QueryError{Message: message}
}

// NewClosedError creates a ProgrammingError for operations on a closed handle.
func NewClosedError(op string) *ProgrammingError {
	return &ProgrammingError{
		Op:      op,
		Message: "connection is closed",
	}
}

// NewDuplicateArgError creates a ProgrammingError for conflicting duplicate
// arguments.
func NewDuplicateArgError(op, flag string) *ProgrammingError {
	return &ProgrammingError{
		Op:      op,
		Message: fmt.Sprintf("duplicate %s argument", flag),
	}
}

// NewInvalidInputError creates a ProgrammingError for invalid caller inputs.
func NewInvalidInputError(op, message string) *ProgrammingError {
	return &ProgrammingError{
		Op:      op,
		Message: message,
	}
}

// Predefined error variables for common cases
var (
	// ErrConnectionFailed indicates the engine returned a nil connection handle.
	ErrConnectionFailed = &BindingError{
		Op:      "Open",
		Message: "connection failed",
	}

	// ErrNoResult indicates the engine returned no result descriptor at all.
	ErrNoResult = &BindingError{
		Op:      "Query",
		Message: "engine returned no result",
	}

	// ErrInvalidEncoding indicates result bytes that are not valid UTF-8.
	ErrInvalidEncoding = &BindingError{
		Op:      "Text",
		Message: "result data is not valid UTF-8",
	}

	// ErrInsufficientPermissions indicates a read-only session data directory.
	ErrInsufficientPermissions = &BindingError{
		Op:      "Build",
		Message: "data directory is not writable",
	}

	// ErrLibraryNotFound indicates the engine shared library could not be located.
	ErrLibraryNotFound = &BindingError{
		Op:      "Load",
		Message: "engine library not found",
	}
)

// Package chembed embeds a columnar analytical SQL engine in-process.
// This package is the sole public API for the library.
//
// Two execution modes are supported: stateless one-shot queries via Execute,
// which open and tear down an ephemeral engine connection per call, and
// stateful sessions via SessionBuilder, which bind a connection to an
// on-disk data directory and keep tables across queries.
package chembed

import (
	"log/slog"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/chembed/chembed/internal/argv"
	"github.com/chembed/chembed/internal/config"
	"github.com/chembed/chembed/internal/conn"
	"github.com/chembed/chembed/internal/engine"
	"github.com/chembed/chembed/internal/errors"
	"github.com/chembed/chembed/internal/result"
	"github.com/chembed/chembed/internal/session"
	"github.com/chembed/chembed/internal/version"
)

// defaultEngine is the shared library binding used by the package-level
// entry points. Tests swap it for an instrumented fake.
var defaultEngine engine.Engine = engine.Default()

// OutputFormat selects the serialization of query output.
type OutputFormat = argv.OutputFormat

// Supported output formats.
const (
	TabSeparated          = argv.TabSeparated
	TabSeparatedWithNames = argv.TabSeparatedWithNames
	CSV                   = argv.CSV
	CSVWithNames          = argv.CSVWithNames
	JSON                  = argv.JSON
	JSONEachRow           = argv.JSONEachRow
	JSONCompact           = argv.JSONCompact
	Pretty                = argv.Pretty
	PrettyCompact         = argv.PrettyCompact
	Values                = argv.Values
	Arrow                 = argv.Arrow
	Parquet               = argv.Parquet
)

// InputFormat selects the parsing format for file-reading table functions.
type InputFormat = argv.InputFormat

// Supported input formats.
const (
	InputCSV          = argv.InputCSV
	InputCSVWithNames = argv.InputCSVWithNames
	InputTSV          = argv.InputTSV
	InputJSONEachRow  = argv.InputJSONEachRow
	InputParquet      = argv.InputParquet
	InputArrow        = argv.InputArrow
)

// LogLevel selects the engine's internal log verbosity.
type LogLevel = argv.LogLevel

// Supported log levels.
const (
	LogTrace = argv.LogTrace
	LogDebug = argv.LogDebug
	LogInfo  = argv.LogInfo
	LogWarn  = argv.LogWarn
	LogError = argv.LogError
)

// Arg is one engine option. Arguments are unordered from the caller's
// perspective; the binding serializes them into the positional order the
// engine expects.
type Arg = argv.Arg

// WithOutputFormat selects the output serialization format.
func WithOutputFormat(f OutputFormat) Arg { return argv.WithOutputFormat(f) }

// WithInputFormat selects the parsing format for file-reading table functions.
func WithInputFormat(f InputFormat) Arg { return argv.WithInputFormat(f) }

// WithMultiQuery marks the SQL text as a ;-delimited batch executed as one
// engine call.
func WithMultiQuery() Arg { return argv.WithMultiQuery() }

// WithDataPath binds the connection to an on-disk data directory.
func WithDataPath(path string) Arg { return argv.WithDataPath(path) }

// WithLogLevel sets the engine's internal log verbosity.
func WithLogLevel(l LogLevel) Arg { return argv.WithLogLevel(l) }

// WithConfigFile points the engine at a server configuration file.
func WithConfigFile(path string) Arg { return argv.WithConfigFile(path) }

// WithCustom passes a raw engine flag through unmodified, e.g. "--multiline".
func WithCustom(flag string) Arg { return argv.WithCustom(flag) }

// WithCustomValue passes a key/value engine flag through as "--key=value".
func WithCustomValue(key, value string) Arg { return argv.WithCustomValue(key, value) }

// Error types. All foreign-boundary failures surface as one of these; no raw
// engine error codes escape the layer.
type (
	// BindingError reports failures inside the binding layer itself.
	BindingError = errors.BindingError
	// QueryError carries the engine's diagnostic for a failed query verbatim.
	QueryError = errors.QueryError
	// ProgrammingError indicates misuse of this layer's contract.
	ProgrammingError = errors.ProgrammingError
)

// Predefined errors.
var (
	ErrConnectionFailed        = errors.ErrConnectionFailed
	ErrNoResult                = errors.ErrNoResult
	ErrInvalidEncoding         = errors.ErrInvalidEncoding
	ErrInsufficientPermissions = errors.ErrInsufficientPermissions
	ErrLibraryNotFound         = errors.ErrLibraryNotFound
)

// QueryResult is the public type for one query's result. It owns the
// engine-allocated buffer and must be released exactly once; Release is safe
// to call multiple times and may be deferred.
type QueryResult struct {
	res *result.Result
}

// Bytes returns a zero-copy view of the result data, valid until Release.
func (r *QueryResult) Bytes() []byte { return r.res.Bytes() }

// Text returns the result data as a string, failing on invalid UTF-8.
func (r *QueryResult) Text() (string, error) { return r.res.Text() }

// TextLossy returns the result data as a string, replacing invalid UTF-8
// sequences with the Unicode replacement character. Intended for diagnostic
// and log paths.
func (r *QueryResult) TextLossy() string { return r.res.TextLossy() }

// Records decodes an Arrow-format result into its record batches. The query
// must have been executed with the Arrow output format.
func (r *QueryResult) Records() ([]arrow.Record, error) { return r.res.Records() }

// RowsRead returns the number of storage rows the query scanned.
func (r *QueryResult) RowsRead() uint64 { return r.res.RowsRead() }

// BytesRead returns the number of storage bytes the query scanned.
func (r *QueryResult) BytesRead() uint64 { return r.res.BytesRead() }

// Elapsed returns the engine-measured execution time.
func (r *QueryResult) Elapsed() time.Duration { return r.res.Elapsed() }

// Fingerprint returns a stable hash of the SQL text that produced this
// result, usable to attribute results to calls.
func (r *QueryResult) Fingerprint() uint64 { return r.res.Fingerprint() }

// Release frees the underlying engine buffer. Only the first call reaches
// the engine.
func (r *QueryResult) Release() { r.res.Release() }

// Connection is the public type for a low-level engine connection. Most
// callers use Execute or Session instead.
type Connection struct {
	conn *conn.Conn
}

// Open connects to the engine with the given arguments and no data path.
func Open(args ...Arg) (*Connection, error) {
	argvec, err := argv.Serialize(args, "")
	if err != nil {
		return nil, err
	}
	c, err := conn.Open(defaultEngine, argvec)
	if err != nil {
		return nil, err
	}
	return &Connection{conn: c}, nil
}

// OpenInMemory connects to an ephemeral engine instance with no persisted
// state.
func OpenInMemory() (*Connection, error) {
	return Open()
}

// OpenPath connects to a persistent engine instance stored at path.
func OpenPath(path string) (*Connection, error) {
	return Open(WithDataPath(path))
}

// Query runs one SQL text in the given output format. Returns a
// ProgrammingError after Close.
func (c *Connection) Query(sql string, format OutputFormat) (*QueryResult, error) {
	res, err := c.conn.Query(sql, format)
	if err != nil {
		return nil, err
	}
	return &QueryResult{res: res}, nil
}

// Close releases the engine connection. Idempotent; the underlying engine
// close runs exactly once.
func (c *Connection) Close() error {
	return c.conn.Close()
}

// Execute runs one stateless query: an ephemeral connection is opened, the
// query issued, and the connection torn down before returning, on success
// and failure paths alike. Two Execute calls never share engine state.
func Execute(sql string, args ...Arg) (*QueryResult, error) {
	for _, a := range args {
		if a.Kind() == argv.KindDataPath {
			return nil, errors.NewInvalidInputError("Execute", "stateless queries cannot use a data path; build a Session instead")
		}
	}

	format, err := argv.ExtractOutputFormat(args, argv.TabSeparated)
	if err != nil {
		return nil, err
	}

	c, err := Open(args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = c.Close() }()

	return c.Query(sql, format)
}

// Session is the public type for a stateful, directory-backed execution
// context supporting multiple queries and persisted tables.
type Session struct {
	s *session.Session
}

// SessionBuilder configures and creates sessions.
type SessionBuilder struct {
	b *session.Builder
}

// NewSessionBuilder returns a builder with defaults: an ephemeral sandbox
// directory, cleanup on close for sandboxes, TabSeparated output.
func NewSessionBuilder() *SessionBuilder {
	return &SessionBuilder{b: session.NewBuilder(defaultEngine)}
}

// WithDataPath sets the directory backing the session, created if missing.
func (sb *SessionBuilder) WithDataPath(path string) *SessionBuilder {
	sb.b.WithDataPath(path)
	return sb
}

// WithAutoCleanup controls whether the data directory is removed when the
// session closes.
func (sb *SessionBuilder) WithAutoCleanup(value bool) *SessionBuilder {
	sb.b.WithAutoCleanup(value)
	return sb
}

// WithDefaultFormat sets the output format used when a query does not
// specify one.
func (sb *SessionBuilder) WithDefaultFormat(f OutputFormat) *SessionBuilder {
	sb.b.WithDefaultFormat(f)
	return sb
}

// WithArgs appends extra engine arguments applied when the connection opens.
func (sb *SessionBuilder) WithArgs(args ...Arg) *SessionBuilder {
	sb.b.WithArgs(args...)
	return sb
}

// WithLogger sets the logger used for session diagnostics.
func (sb *SessionBuilder) WithLogger(logger *slog.Logger) *SessionBuilder {
	sb.b.WithLogger(logger)
	return sb
}

// Build creates the data directory if needed and opens the session.
func (sb *SessionBuilder) Build() (*Session, error) {
	s, err := sb.b.Build()
	if err != nil {
		return nil, err
	}
	return &Session{s: s}, nil
}

// NewSessionFromConfigFile builds a session from a YAML or JSON
// configuration file.
func NewSessionFromConfigFile(path string) (*Session, error) {
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}

	format, err := cfg.OutputFormat()
	if err != nil {
		return nil, err
	}
	args, err := cfg.Args()
	if err != nil {
		return nil, err
	}

	return NewSessionBuilder().
		WithDataPath(cfg.Path).
		WithAutoCleanup(cfg.AutoCleanup).
		WithDefaultFormat(format).
		WithArgs(args...).
		Build()
}

// Execute runs one SQL text against the session, or a ;-delimited batch when
// the MultiQuery argument is present. Concurrent calls on one session are
// serialized; the engine is not assumed reentrant.
func (s *Session) Execute(sql string, args ...Arg) (*QueryResult, error) {
	res, err := s.s.Execute(sql, args...)
	if err != nil {
		return nil, err
	}
	return &QueryResult{res: res}, nil
}

// Path returns the data directory backing the session.
func (s *Session) Path() string { return s.s.Path() }

// Close tears the session down: the connection closes first, then the data
// directory is removed when auto-cleanup is enabled. Idempotent.
func (s *Session) Close() error { return s.s.Close() }

// Version returns the library version string.
func Version() string {
	return version.Info().String()
}

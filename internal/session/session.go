// Package session provides the stateful, directory-backed execution context.
// A session owns one connection bound to a data directory and tears both
// down in a fixed order: the connection closes first, and only then may the
// directory be removed, because the engine holds open file handles against
// it until close completes.
package session

import (
	"log/slog"
	"os"

	"github.com/chembed/chembed/internal/argv"
	"github.com/chembed/chembed/internal/conn"
	"github.com/chembed/chembed/internal/engine"
	"github.com/chembed/chembed/internal/errors"
	"github.com/chembed/chembed/internal/result"
)

// Builder configures and creates Session instances.
type Builder struct {
	eng           engine.Engine
	dataPath      string
	autoCleanup   bool
	cleanupSet    bool
	defaultFormat argv.OutputFormat
	args          []argv.Arg
	logger        *slog.Logger
}

// NewBuilder returns a Builder with defaults: no data path (an ephemeral
// sandbox is created at build time), auto-cleanup disabled for explicit
// paths, and TabSeparated as the default output format.
func NewBuilder(eng engine.Engine) *Builder {
	return &Builder{
		eng:           eng,
		defaultFormat: argv.TabSeparated,
		logger:        slog.Default(),
	}
}

// WithDataPath sets the directory backing the session. The directory is
// created at build time if missing.
func (b *Builder) WithDataPath(path string) *Builder {
	b.dataPath = path
	return b
}

// WithAutoCleanup controls whether the data directory is recursively removed
// when the session closes.
func (b *Builder) WithAutoCleanup(value bool) *Builder {
	b.autoCleanup = value
	b.cleanupSet = true
	return b
}

// WithDefaultFormat sets the output format used when a query does not
// specify one.
func (b *Builder) WithDefaultFormat(f argv.OutputFormat) *Builder {
	b.defaultFormat = f
	return b
}

// WithArgs appends extra engine arguments applied when the connection opens.
func (b *Builder) WithArgs(args ...argv.Arg) *Builder {
	b.args = append(b.args, args...)
	return b
}

// WithLogger sets the logger used for teardown diagnostics.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build prepares the data directory and opens the session's connection.
// When no data path was configured, a temporary sandbox directory is created
// and cleaned up on close unless the caller disabled cleanup explicitly.
func (b *Builder) Build() (*Session, error) {
	path := b.dataPath
	autoCleanup := b.autoCleanup

	if path == "" {
		tmp, err := os.MkdirTemp("", "chembed-")
		if err != nil {
			return nil, &errors.BindingError{Op: "Build", Message: "creating sandbox directory", Cause: err}
		}
		path = tmp
		if !b.cleanupSet {
			autoCleanup = true
		}
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, &errors.BindingError{Op: "Build", Message: "creating data directory", Cause: err}
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &errors.BindingError{Op: "Build", Message: "inspecting data directory", Cause: err}
	}
	if info.Mode().Perm()&0o200 == 0 {
		return nil, errors.ErrInsufficientPermissions
	}

	argvec, err := argv.Serialize(b.args, path)
	if err != nil {
		return nil, err
	}

	c, err := conn.Open(b.eng, argvec)
	if err != nil {
		return nil, err
	}

	return &Session{
		conn:          c,
		dataPath:      path,
		autoCleanup:   autoCleanup,
		defaultFormat: b.defaultFormat,
		logger:        b.logger,
	}, nil
}

// Session is a stateful execution context over a persistent data directory.
// Queries against one session are serialized; independent sessions over
// distinct directories run fully concurrently.
type Session struct {
	conn          *conn.Conn
	dataPath      string
	autoCleanup   bool
	defaultFormat argv.OutputFormat
	logger        *slog.Logger
}

// Execute runs one SQL text, or a ;-delimited batch when the MultiQuery
// argument is present. Per-call arguments may override the output format;
// rebinding the data path per call is a caller error. Partial failure inside
// a batch is engine-defined: the session surfaces whatever single result or
// error the engine returns for the whole batch.
func (s *Session) Execute(sql string, args ...argv.Arg) (*result.Result, error) {
	for _, a := range args {
		if a.Kind() == argv.KindDataPath {
			return nil, errors.NewInvalidInputError("Execute", "data path cannot be changed per call")
		}
	}

	format, err := argv.ExtractOutputFormat(args, s.defaultFormat)
	if err != nil {
		return nil, err
	}

	res, err := s.conn.Query(sql, format)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("query executed",
		"fingerprint", res.Fingerprint(),
		"rows_read", res.RowsRead(),
		"elapsed", res.Elapsed(),
	)
	return res, nil
}

// Path returns the data directory backing the session.
func (s *Session) Path() string { return s.dataPath }

// Close tears the session down in two phases: close the connection, then,
// only if that succeeded and auto-cleanup is enabled, remove the data
// directory. Removal failures are logged, never escalated. Idempotent; the
// underlying engine close runs exactly once.
func (s *Session) Close() error {
	alreadyClosed := s.conn.Closed()
	if err := s.conn.Close(); err != nil {
		return err
	}
	if alreadyClosed {
		return nil
	}

	if s.autoCleanup {
		if err := os.RemoveAll(s.dataPath); err != nil {
			s.logger.Warn("data directory cleanup failed", "path", s.dataPath, "error", err)
		}
	}
	return nil
}

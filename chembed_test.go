package chembed

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chembed/chembed/internal/engine"
	"github.com/chembed/chembed/internal/engine/enginemock"
)

// withMockEngine installs an instrumented fake engine for the duration of a
// test. The package-level entry points pick it up through defaultEngine.
func withMockEngine(t *testing.T, cfg enginemock.Config) *enginemock.Mock {
	t.Helper()
	m := enginemock.New(cfg)

	old := defaultEngine
	defaultEngine = m
	t.Cleanup(func() { defaultEngine = old })

	var _ engine.Engine = m
	return m
}

func TestExecute_StatelessQuery(t *testing.T) {
	m := withMockEngine(t, enginemock.Config{
		Script: enginemock.ScriptResults(map[string]enginemock.Response{
			"SELECT 1+1 AS sum": {Data: "2\n", RowsRead: 1},
		}),
	})

	res, err := Execute("SELECT 1+1 AS sum")
	require.NoError(t, err)
	defer res.Release()

	text, err := res.Text()
	require.NoError(t, err)
	assert.Contains(t, text, "2")

	// The ephemeral connection is gone before Execute returns.
	assert.Equal(t, 1, m.OpenCount())
	assert.Equal(t, 1, m.CloseCount())
	assert.Zero(t, m.OpenHandles())
}

func TestExecute_CallsNeverShareAHandle(t *testing.T) {
	m := withMockEngine(t, enginemock.Config{
		Script: func(sql, format string) enginemock.Response {
			return enginemock.Response{Data: sql}
		},
	})

	for i := 0; i < 3; i++ {
		res, err := Execute(fmt.Sprintf("SELECT %d", i))
		require.NoError(t, err)
		res.Release()
	}

	assert.Equal(t, 3, m.OpenCount())
	assert.Equal(t, 3, m.CloseCount())
	assert.Zero(t, m.OpenHandles())
}

func TestExecute_ConnectionFailedSurfaced(t *testing.T) {
	withMockEngine(t, enginemock.Config{FailOpen: true})

	_, err := Execute("SELECT 1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestExecute_UnknownTableIsQueryError(t *testing.T) {
	withMockEngine(t, enginemock.Config{
		Script: enginemock.ScriptResults(map[string]enginemock.Response{}),
	})

	_, err := Execute("SELECT * FROM no_such_table")
	require.Error(t, err)

	var qe *QueryError
	assert.ErrorAs(t, err, &qe)
	assert.NotErrorIs(t, err, ErrConnectionFailed)
}

func TestExecute_RejectsDataPath(t *testing.T) {
	m := withMockEngine(t, enginemock.Config{})

	_, err := Execute("SELECT 1", WithDataPath("/tmp/db"))
	require.Error(t, err)

	var pe *ProgrammingError
	assert.ErrorAs(t, err, &pe)
	assert.Zero(t, m.OpenCount())
}

func TestSession_TableLifecycle(t *testing.T) {
	const (
		createSQL = "CREATE TABLE t (id UInt64) ENGINE = Memory ORDER BY id"
		insertSQL = "INSERT INTO t VALUES (1),(2)"
		countSQL  = "SELECT count(*) FROM t"
	)
	m := withMockEngine(t, enginemock.Config{
		Script: enginemock.ScriptResults(map[string]enginemock.Response{
			createSQL: {},
			insertSQL: {},
			countSQL:  {Data: "{\"count()\":\"2\"}\n", RowsRead: 2, BytesRead: 16},
		}),
	})

	s, err := NewSessionBuilder().
		WithDataPath(filepath.Join(t.TempDir(), "db")).
		WithDefaultFormat(JSONEachRow).
		Build()
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	for _, sql := range []string{createSQL, insertSQL} {
		res, err := s.Execute(sql)
		require.NoError(t, err)
		res.Release()
	}

	res, err := s.Execute(countSQL, WithOutputFormat(JSONEachRow))
	require.NoError(t, err)
	defer res.Release()

	text, err := res.Text()
	require.NoError(t, err)
	assert.Contains(t, text, "2")
	assert.GreaterOrEqual(t, res.RowsRead(), uint64(1))

	assert.Equal(t, 3, m.QueryCount())
}

func TestSession_AutoCleanupLeavesNoDirectory(t *testing.T) {
	withMockEngine(t, enginemock.Config{})
	path := filepath.Join(t.TempDir(), "db")

	s, err := NewSessionBuilder().
		WithDataPath(path).
		WithAutoCleanup(true).
		Build()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSession_DoubleCloseClosesEngineOnce(t *testing.T) {
	m := withMockEngine(t, enginemock.Config{})

	s, err := NewSessionBuilder().WithDataPath(t.TempDir()).Build()
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Equal(t, 1, m.CloseCount())
}

func TestSession_ConcurrentExecutes(t *testing.T) {
	m := withMockEngine(t, enginemock.Config{
		Script: func(sql, format string) enginemock.Response {
			return enginemock.Response{Data: sql, RowsRead: 1}
		},
	})

	s, err := NewSessionBuilder().WithDataPath(t.TempDir()).Build()
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	const workers = 12
	var wg sync.WaitGroup
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			sql := fmt.Sprintf("SELECT %d AS tag", id)
			res, err := s.Execute(sql)
			if err != nil {
				errCh <- err
				return
			}
			defer res.Release()

			text, err := res.Text()
			if err != nil {
				errCh <- err
				return
			}
			if text != sql {
				errCh <- fmt.Errorf("result %q does not match query %q", text, sql)
				return
			}
			if res.Fingerprint() != xxhash.Sum64String(sql) {
				errCh <- fmt.Errorf("fingerprint mismatch for %q", sql)
			}
		}(i)
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Error(err)
	}

	assert.Equal(t, workers, m.QueryCount())
	assert.Zero(t, m.DoubleFreeCount())
}

func TestConnection_QueryAfterClose(t *testing.T) {
	m := withMockEngine(t, enginemock.Config{})

	c, err := OpenInMemory()
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = c.Query("SELECT 1", TabSeparated)
	require.Error(t, err)

	var pe *ProgrammingError
	assert.ErrorAs(t, err, &pe)
	assert.Zero(t, m.QueryCount())
}

func TestNewSessionFromConfigFile(t *testing.T) {
	m := withMockEngine(t, enginemock.Config{
		Script: func(sql, format string) enginemock.Response {
			return enginemock.Response{Data: format}
		},
	})

	dir := t.TempDir()
	dataPath := filepath.Join(dir, "data")
	cfgPath := filepath.Join(dir, "session.yaml")
	cfg := fmt.Sprintf("path: %s\nauto_cleanup: true\nformat: JSONEachRow\nlog_level: warn\n", dataPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	s, err := NewSessionFromConfigFile(cfgPath)
	require.NoError(t, err)

	res, err := s.Execute("SELECT 1")
	require.NoError(t, err)
	text, err := res.Text()
	require.NoError(t, err)
	assert.Equal(t, "JSONEachRow", text)
	res.Release()

	require.NoError(t, s.Close())
	_, err = os.Stat(dataPath)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 1, m.CloseCount())
}

func TestVersion(t *testing.T) {
	assert.Contains(t, Version(), "chembed")
}

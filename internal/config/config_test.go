package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chembed/chembed/internal/argv"
	"github.com/chembed/chembed/internal/config"
)

func TestSessionConfig_Defaults(t *testing.T) {
	cfg := config.NewSessionConfig()

	assert.Empty(t, cfg.Path)
	assert.False(t, cfg.AutoCleanup)
	assert.Equal(t, "TabSeparated", cfg.Format)

	format, err := cfg.OutputFormat()
	require.NoError(t, err)
	assert.Equal(t, argv.TabSeparated, format)
}

func TestSessionConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  config.SessionConfig
		wantErr string
	}{
		{
			name:   "valid config",
			config: config.SessionConfig{Format: "JSONEachRow", LogLevel: "warn", Flags: []string{"--multiline"}},
		},
		{
			name:    "unknown format",
			config:  config.SessionConfig{Format: "NotAFormat"},
			wantErr: "unknown output format",
		},
		{
			name:    "unknown log level",
			config:  config.SessionConfig{LogLevel: "loud"},
			wantErr: "unknown log level",
		},
		{
			name:    "malformed flag",
			config:  config.SessionConfig{Flags: []string{"multiline"}},
			wantErr: "must start with '-'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSessionConfig_Args(t *testing.T) {
	cfg := config.SessionConfig{
		LogLevel: "warn",
		Flags:    []string{"--multiline", "--max_threads=4"},
	}

	args, err := cfg.Args()
	require.NoError(t, err)

	out, err := argv.Serialize(args, "/tmp/db")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"clickhouse",
		"--path=/tmp/db",
		"--log-level=warning",
		"--multiline",
		"--max_threads=4",
	}, out)
}

func TestLoadFromYAML(t *testing.T) {
	data := []byte(`
path: /var/lib/chembed
auto_cleanup: true
format: JSONEachRow
log_level: error
flags:
  - --multiline
`)

	cfg, err := config.LoadFromYAML(data)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/chembed", cfg.Path)
	assert.True(t, cfg.AutoCleanup)
	assert.Equal(t, "JSONEachRow", cfg.Format)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, []string{"--multiline"}, cfg.Flags)
}

func TestLoadFromJSON(t *testing.T) {
	data := []byte(`{"path": "/var/lib/chembed", "format": "CSVWithNames"}`)

	cfg, err := config.LoadFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/chembed", cfg.Path)
	assert.Equal(t, "CSVWithNames", cfg.Format)
}

func TestLoadFromJSON_InvalidConfigRejected(t *testing.T) {
	_, err := config.LoadFromJSON([]byte(`{"format": "NotAFormat"}`))
	require.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "session.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("format: Pretty\n"), 0o644))

	cfg, err := config.LoadFromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "Pretty", cfg.Format)

	jsonPath := filepath.Join(dir, "session.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"format": "Values"}`), 0o644))

	cfg, err = config.LoadFromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "Values", cfg.Format)

	tomlPath := filepath.Join(dir, "session.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("format = 'Pretty'\n"), 0o644))

	_, err = config.LoadFromFile(tomlPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported configuration format")
}

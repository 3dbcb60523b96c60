// Package config provides file-based configuration for chembed sessions.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chembed/chembed/internal/argv"
)

// SessionConfig describes a session declaratively so deployments can keep
// engine settings in a file instead of code.
type SessionConfig struct {
	// Path is the data directory backing the session. Empty means an
	// ephemeral sandbox chosen at build time.
	Path string `json:"path" yaml:"path"`

	// AutoCleanup removes the data directory when the session closes.
	AutoCleanup bool `json:"auto_cleanup" yaml:"auto_cleanup"`

	// Format is the default output format name (e.g. "JSONEachRow").
	Format string `json:"format" yaml:"format"`

	// LogLevel is the engine log verbosity: trace, debug, info, warn, error.
	LogLevel string `json:"log_level" yaml:"log_level"`

	// Flags are raw engine flags passed through unmodified.
	Flags []string `json:"flags" yaml:"flags"`
}

// NewSessionConfig returns a configuration with default values.
func NewSessionConfig() SessionConfig {
	return SessionConfig{
		Format: argv.TabSeparated.String(),
	}
}

// Validate checks the configuration and returns an error if invalid.
func (c *SessionConfig) Validate() error {
	if c.Format != "" {
		if _, err := argv.ParseOutputFormat(c.Format); err != nil {
			return fmt.Errorf("format: %w", err)
		}
	}
	if c.LogLevel != "" {
		if _, err := parseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	for _, flag := range c.Flags {
		if !strings.HasPrefix(flag, "-") {
			return fmt.Errorf("flag %q must start with '-'", flag)
		}
	}
	return nil
}

// Args converts the configuration into engine arguments for the session
// builder. The data path and cleanup flag are handled by the builder itself.
func (c *SessionConfig) Args() ([]argv.Arg, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var args []argv.Arg
	if c.LogLevel != "" {
		level, err := parseLogLevel(c.LogLevel)
		if err != nil {
			return nil, err
		}
		args = append(args, argv.WithLogLevel(level))
	}
	for _, flag := range c.Flags {
		args = append(args, argv.WithCustom(flag))
	}
	return args, nil
}

// OutputFormat resolves the configured default output format.
func (c *SessionConfig) OutputFormat() (argv.OutputFormat, error) {
	if c.Format == "" {
		return argv.TabSeparated, nil
	}
	return argv.ParseOutputFormat(c.Format)
}

// LoadFromJSON loads configuration from JSON data.
func LoadFromJSON(data []byte) (SessionConfig, error) {
	config := NewSessionConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return SessionConfig{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	if err := config.Validate(); err != nil {
		return SessionConfig{}, err
	}
	return config, nil
}

// LoadFromYAML loads configuration from YAML data.
func LoadFromYAML(data []byte) (SessionConfig, error) {
	config := NewSessionConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return SessionConfig{}, fmt.Errorf("parsing YAML configuration: %w", err)
	}
	if err := config.Validate(); err != nil {
		return SessionConfig{}, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a file, selecting the parser by
// extension (.json, .yaml, .yml).
func LoadFromFile(path string) (SessionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SessionConfig{}, fmt.Errorf("reading configuration file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadFromJSON(data)
	case ".yaml", ".yml":
		return LoadFromYAML(data)
	default:
		return SessionConfig{}, fmt.Errorf("unsupported configuration format: %s", filepath.Ext(path))
	}
}

func parseLogLevel(name string) (argv.LogLevel, error) {
	switch strings.ToLower(name) {
	case "trace":
		return argv.LogTrace, nil
	case "debug":
		return argv.LogDebug, nil
	case "info", "information":
		return argv.LogInfo, nil
	case "warn", "warning":
		return argv.LogWarn, nil
	case "error":
		return argv.LogError, nil
	default:
		return argv.LogInfo, fmt.Errorf("unknown log level %q", name)
	}
}

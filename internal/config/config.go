package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level slotguard configuration.
type Config struct {
	// Workers is the number of dispatcher goroutines.
	Workers int `yaml:"workers" json:"workers"`

	// MaxSuggestions caps alternative slots when a command does not ask
	// for a specific number.
	MaxSuggestions int `yaml:"max_suggestions" json:"max_suggestions"`

	// Journal is the SQLite path for the change journal. Empty disables it.
	Journal string `yaml:"journal" json:"journal"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Report is a cron spec (e.g. "@every 30s") for metrics logging.
	// Empty disables reporting.
	Report string `yaml:"report" json:"report"`

	// SyncInterval is how often connected clients are flushed.
	SyncInterval time.Duration `yaml:"sync_interval" json:"sync_interval"`

	// DefaultOwner is assigned to imported ICS events without an owner.
	DefaultOwner string `yaml:"default_owner" json:"default_owner"`
}

const (
	defaultWorkers        = 4
	defaultMaxSuggestions = 3
	defaultLogLevel       = "info"
	defaultSyncInterval   = 100 * time.Millisecond
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Workers:        defaultWorkers,
		MaxSuggestions: defaultMaxSuggestions,
		LogLevel:       defaultLogLevel,
		SyncInterval:   defaultSyncInterval,
	}
}

// Normalize fills in missing or out-of-range values so that partial
// configs still behave.
func (c *Config) Normalize() {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.MaxSuggestions <= 0 {
		c.MaxSuggestions = defaultMaxSuggestions
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = defaultLogLevel
	}
	if c.SyncInterval <= 0 {
		c.SyncInterval = defaultSyncInterval
	}
}

// Level maps LogLevel to a slog level.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads a YAML config from path. Unknown keys are rejected; missing
// keys take their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.Normalize()
	return cfg, nil
}

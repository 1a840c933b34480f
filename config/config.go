// Package config loads and validates the application configuration.
//
// The application config is YAML: bus connection, logging, metrics and
// the set of alarm rule documents to run. Rule documents themselves are
// JSON and validated separately by the alarm processor.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/alarmstreams/errors"
)

// Defaults applied by Validate when fields are unset.
const (
	DefaultNATSURL        = "nats://localhost:4222"
	DefaultNATSName       = "alarmstreams"
	DefaultConnectTimeout = 10 * time.Second
	DefaultDrainTimeout   = 30 * time.Second
	DefaultStopTimeout    = 10 * time.Second
	DefaultMetricsPort    = 9090
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// NATSConfig holds event bus connection settings.
type NATSConfig struct {
	URL            string        `yaml:"url"`
	Name           string        `yaml:"name"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	DrainTimeout   time.Duration `yaml:"drain_timeout"`
	MaxReconnects  int           `yaml:"max_reconnects"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Config is the complete application configuration.
type Config struct {
	NATS    NATSConfig    `yaml:"nats"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`

	// RuleFiles lists the alarm rule documents (JSON) to run, one
	// executor per file.
	RuleFiles []string `yaml:"rule_files"`

	// StopTimeout bounds graceful shutdown of each executor.
	StopTimeout time.Duration `yaml:"stop_timeout"`
}

// Load reads, parses and validates a configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.WrapInvalid(err, "Config", "Load", "read config file")
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.WrapInvalid(err, "Config", "Load", "decode config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate applies defaults and rejects unusable configurations.
func (c *Config) Validate() error {
	if c.NATS.URL == "" {
		c.NATS.URL = DefaultNATSURL
	}
	if c.NATS.Name == "" {
		c.NATS.Name = DefaultNATSName
	}
	if c.NATS.ConnectTimeout <= 0 {
		c.NATS.ConnectTimeout = DefaultConnectTimeout
	}
	if c.NATS.DrainTimeout <= 0 {
		c.NATS.DrainTimeout = DefaultDrainTimeout
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = DefaultStopTimeout
	}

	switch c.Logging.Level {
	case "":
		c.Logging.Level = DefaultLogLevel
	case "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: unknown log level %q", errors.ErrInvalidConfig, c.Logging.Level),
			"Config", "Validate", "check logging level")
	}

	switch c.Logging.Format {
	case "":
		c.Logging.Format = DefaultLogFormat
	case "text", "json":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: unknown log format %q", errors.ErrInvalidConfig, c.Logging.Format),
			"Config", "Validate", "check logging format")
	}

	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: metrics port %d out of range", errors.ErrInvalidConfig, c.Metrics.Port),
			"Config", "Validate", "check metrics port")
	}

	if len(c.RuleFiles) == 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: no rule files configured", errors.ErrMissingConfig),
			"Config", "Validate", "check rule files")
	}
	seen := make(map[string]struct{}, len(c.RuleFiles))
	for _, path := range c.RuleFiles {
		if path == "" {
			return errors.WrapInvalid(
				fmt.Errorf("%w: empty rule file path", errors.ErrInvalidConfig),
				"Config", "Validate", "check rule files")
		}
		if _, dup := seen[path]; dup {
			return errors.WrapInvalid(
				fmt.Errorf("%w: duplicate rule file %q", errors.ErrInvalidConfig, path),
				"Config", "Validate", "check rule files")
		}
		seen[path] = struct{}{}
	}

	return nil
}

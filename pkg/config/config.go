// Package config provides configuration structures and loading logic for sourcemark.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/polisai/sourcemark/pkg/domain"
)

// Config holds the complete sourcemark configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Limits  LimitsConfig  `yaml:"limits"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig defines HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LimitsConfig bounds request sizes and per-request work.
type LimitsConfig struct {
	MaxBodyBytes        int64 `yaml:"max_body_bytes"`
	MaxExcerptBytes     int64 `yaml:"max_excerpt_bytes"`
	CacheSize           int   `yaml:"cache_size"`
	AnnotateConcurrency int   `yaml:"annotate_concurrency"`
}

// MetricsConfig defines Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TracingConfig defines OpenTelemetry export settings.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Environment string `yaml:"environment"`
	Insecure    bool   `yaml:"insecure"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json", "text"
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8099,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Limits: LimitsConfig{
			MaxBodyBytes:        2 << 20,
			MaxExcerptBytes:     64 << 10,
			CacheSize:           512,
			AnnotateConcurrency: 4,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			ServiceName: "sourcemark",
			Insecure:    true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from path on top of the defaults, expands ${VAR}
// references, applies environment overrides and validates the result. An empty path
// yields the defaults with overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		//nolint:gosec // Config file path is controlled by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse expands environment variables in data and decodes it into cfg.
func Parse(data []byte, cfg *Config) error {
	expanded := []byte(os.ExpandEnv(string(data)))
	return yaml.Unmarshal(expanded, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("SOURCEMARK_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = port
		}
	}
	if val := os.Getenv("SOURCEMARK_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("SOURCEMARK_LOG_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
	if val := os.Getenv("SOURCEMARK_OTLP_ENDPOINT"); val != "" {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Endpoint = val
	}
	if val := os.Getenv("SOURCEMARK_OTLP_INSECURE"); val != "" {
		cfg.Tracing.Insecure = val == "true"
	}
}

// Validate performs validation of the entire configuration, normalising values
// where a sensible default exists.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server configuration: %w", err)
	}
	if err := c.Limits.Validate(); err != nil {
		return fmt.Errorf("limits configuration: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics configuration: %w", err)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing configuration: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging configuration: %w", err)
	}
	return nil
}

// Validate performs validation of server configuration
func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", domain.ErrConfigInvalid, c.Port)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", domain.ErrConfigInvalid)
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return nil
}

// Validate performs validation of request limits
func (c *LimitsConfig) Validate() error {
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: max_body_bytes must be positive", domain.ErrConfigInvalid)
	}
	if c.MaxExcerptBytes <= 0 {
		return fmt.Errorf("%w: max_excerpt_bytes must be positive", domain.ErrConfigInvalid)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("%w: cache_size must not be negative", domain.ErrConfigInvalid)
	}
	if c.AnnotateConcurrency < 0 {
		return fmt.Errorf("%w: annotate_concurrency must not be negative", domain.ErrConfigInvalid)
	}
	return nil
}

// Validate performs validation of metrics configuration
func (c *MetricsConfig) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		c.Path = "/metrics"
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("%w: metrics path %q must start with /", domain.ErrConfigInvalid, c.Path)
	}
	return nil
}

// Validate performs validation of tracing configuration
func (c *TracingConfig) Validate() error {
	if c.Enabled && strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("%w: tracing enabled without endpoint", domain.ErrConfigInvalid)
	}
	if strings.TrimSpace(c.ServiceName) == "" {
		c.ServiceName = "sourcemark"
	}
	return nil
}

// Validate performs validation of logging configuration
func (c *LoggingConfig) Validate() error {
	if strings.TrimSpace(c.Level) == "" {
		c.Level = "info"
	}
	level := strings.TrimSpace(strings.ToLower(c.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Level = level
	default:
		return fmt.Errorf("%w: invalid log level %q", domain.ErrConfigInvalid, c.Level)
	}

	format := strings.TrimSpace(strings.ToLower(c.Format))
	switch format {
	case "":
		c.Format = "json"
	case "json", "text":
		c.Format = format
	default:
		return fmt.Errorf("%w: invalid log format %q", domain.ErrConfigInvalid, c.Format)
	}
	return nil
}

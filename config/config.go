// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/objectschema/core/validation"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Schemas    SchemasConfig    `yaml:"schemas"`
	Store      StoreConfig      `yaml:"store"`
	Validation ValidationConfig `yaml:"validation"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// SchemasConfig lists the directories schema documents are loaded from.
type SchemasConfig struct {
	Dirs  []string `yaml:"dirs"`  // Relative paths resolve against the config file
	Watch bool     `yaml:"watch"` // Reload when a schema file changes
}

// StoreConfig selects the schema store backing the registry.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "memory" or "sqlite"
	DSN    string `yaml:"dsn"`
}

// ValidationConfig configures the constraint compiler.
type ValidationConfig struct {
	MaxDepth int `yaml:"max_depth"` // Bound on nested reference resolution
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// Addr returns the server listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	resolveDirs(&cfg, filepath.Dir(path))

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	OBJECTSCHEMA_SCHEMA_DIRS           - Comma-separated schema directories
//	OBJECTSCHEMA_SCHEMAS_WATCH         - Reload schemas on change (default: false)
//	OBJECTSCHEMA_STORE_DRIVER          - memory or sqlite (default: memory)
//	OBJECTSCHEMA_STORE_DSN             - SQLite database path (default: objectschema.db)
//	OBJECTSCHEMA_VALIDATION_MAX_DEPTH  - Reference nesting bound (default: 64)
//	OBJECTSCHEMA_SERVER_HOST           - Server host (default: 0.0.0.0)
//	OBJECTSCHEMA_SERVER_PORT           - Server port (default: 8080)
//	OBJECTSCHEMA_LOG_LEVEL             - debug, info, warn, error (default: info)
//	OBJECTSCHEMA_LOG_FORMAT            - json or console (default: json)
//	OBJECTSCHEMA_METRICS_ENABLED       - Enable metrics endpoint (default: false)
//	OBJECTSCHEMA_METRICS_PATH          - Metrics path (default: /metrics)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads path if it exists and falls back to environment
// variables otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// HasEnvConfig returns true if schema directories are configured through the
// environment.
func HasEnvConfig() bool {
	return os.Getenv("OBJECTSCHEMA_SCHEMA_DIRS") != ""
}

func resolveDirs(cfg *Config, base string) {
	for i, dir := range cfg.Schemas.Dirs {
		if dir != "" && !filepath.IsAbs(dir) {
			cfg.Schemas.Dirs[i] = filepath.Join(base, dir)
		}
	}
}

// applyEnvOverrides applies OBJECTSCHEMA_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Schema configuration
	if v := os.Getenv("OBJECTSCHEMA_SCHEMA_DIRS"); v != "" {
		cfg.Schemas.Dirs = splitList(v)
	}
	if v := os.Getenv("OBJECTSCHEMA_SCHEMAS_WATCH"); v != "" {
		cfg.Schemas.Watch = parseBool(v)
	}

	// Store configuration
	if v := os.Getenv("OBJECTSCHEMA_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("OBJECTSCHEMA_STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}

	// Validation configuration
	if v := os.Getenv("OBJECTSCHEMA_VALIDATION_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Validation.MaxDepth = n
		}
	}

	// Server configuration
	if v := os.Getenv("OBJECTSCHEMA_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("OBJECTSCHEMA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("OBJECTSCHEMA_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("OBJECTSCHEMA_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Logging configuration
	if v := os.Getenv("OBJECTSCHEMA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OBJECTSCHEMA_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("OBJECTSCHEMA_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("OBJECTSCHEMA_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setDefaults(cfg *Config) {
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "memory"
	}
	if cfg.Store.Driver == "sqlite" && cfg.Store.DSN == "" {
		cfg.Store.DSN = "objectschema.db"
	}

	if cfg.Validation.MaxDepth == 0 {
		cfg.Validation.MaxDepth = validation.DefaultMaxDepth
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	validDrivers := map[string]bool{"memory": true, "sqlite": true}
	if !validDrivers[cfg.Store.Driver] {
		return fmt.Errorf("store.driver must be 'memory' or 'sqlite', got %q", cfg.Store.Driver)
	}

	if cfg.Validation.MaxDepth < 1 {
		return fmt.Errorf("validation.max_depth must be positive, got %d", cfg.Validation.MaxDepth)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.Logging.Level)); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	for i, dir := range cfg.Schemas.Dirs {
		if dir == "" {
			return fmt.Errorf("schemas.dirs[%d] is empty", i)
		}
	}

	return nil
}

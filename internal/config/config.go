// Package config loads the YAML configuration file shared by every
// birthdayverse command.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/BirthdayVerse/core/errors"
	"github.com/FocuswithJustin/BirthdayVerse/internal/bibleapi"
	"github.com/FocuswithJustin/BirthdayVerse/internal/logging"
)

// Verse source kinds.
const (
	SourceHTTP   = "http"
	SourceSQLite = "sqlite"
)

// Config holds all birthdayverse configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Source  SourceConfig  `yaml:"source"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port              int      `yaml:"port"`
	AllowedOrigins    []string `yaml:"allowed_origins"`
	RateLimitRequests int      `yaml:"rate_limit_requests"` // per minute, 0 disables
	RateLimitBurst    int      `yaml:"rate_limit_burst"`
	ShutdownTimeout   string   `yaml:"shutdown_timeout"`

	WebSocket WebSocketConfig `yaml:"websocket"`
}

// WebSocketConfig limits lookup sessions.
type WebSocketConfig struct {
	MaxMessageRate int   `yaml:"max_message_rate"`
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// SourceConfig selects and configures the verse source.
type SourceConfig struct {
	Kind        string `yaml:"kind"` // http, sqlite
	APIBase     string `yaml:"api_base"`
	Translation string `yaml:"translation"`
	DBPath      string `yaml:"db_path"`
	Timeout     string `yaml:"timeout"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			RateLimitBurst:  10,
			ShutdownTimeout: "10s",
			WebSocket: WebSocketConfig{
				MaxMessageRate: 10,
				MaxMessageSize: 4096,
			},
		},
		Source: SourceConfig{
			Kind:    SourceHTTP,
			APIBase: bibleapi.DefaultBaseURL,
			DBPath:  "birthdayverse.db",
			Timeout: "10s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from a YAML file on top of the defaults.
// An empty path or a missing file yields the defaults. Environment
// overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, errors.NewIO("read config", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, &errors.ParseError{Format: "YAML", Path: path, Message: err.Error(), Err: err}
			}
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewIO("create config directory", filepath.Dir(path), err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.NewIO("write config", path, err)
	}
	return nil
}

// applyEnvOverrides applies BIRTHDAYVERSE_* environment variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BIRTHDAYVERSE_SOURCE"); v != "" {
		c.Source.Kind = v
	}
	if v := os.Getenv("BIRTHDAYVERSE_API_BASE"); v != "" {
		c.Source.APIBase = v
	}
	if v := os.Getenv("BIRTHDAYVERSE_DB"); v != "" {
		c.Source.DBPath = v
	}
	if v := os.Getenv("BIRTHDAYVERSE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

// LookupTimeout returns the per-lookup timeout.
func (c *Config) LookupTimeout() time.Duration {
	d, err := time.ParseDuration(c.Source.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// ShutdownTimeout returns the graceful shutdown period.
func (c *Config) ShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// ValidSources lists the supported verse source kinds.
var ValidSources = []string{SourceHTTP, SourceSQLite}

// Validate checks the configuration for values no command can run with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.NewValidation("server.port", fmt.Sprintf("port %d out of range", c.Server.Port))
	}
	if c.Server.RateLimitRequests < 0 || c.Server.RateLimitBurst < 0 {
		return errors.NewValidation("server.rate_limit", "rate limit values must not be negative")
	}
	if c.Server.WebSocket.MaxMessageRate < 0 || c.Server.WebSocket.MaxMessageSize < 0 {
		return errors.NewValidation("server.websocket", "websocket limits must not be negative")
	}
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); c.Server.ShutdownTimeout != "" && err != nil {
		return errors.NewValidation("server.shutdown_timeout", err.Error())
	}

	switch c.Source.Kind {
	case SourceHTTP:
		if c.Source.APIBase == "" {
			return errors.NewValidation("source.api_base", "required for the http source")
		}
	case SourceSQLite:
		if c.Source.DBPath == "" {
			return errors.NewValidation("source.db_path", "required for the sqlite source")
		}
	default:
		return errors.NewValidation("source.kind", fmt.Sprintf("invalid source %q (valid: %v)", c.Source.Kind, ValidSources))
	}
	if d, err := time.ParseDuration(c.Source.Timeout); c.Source.Timeout != "" && (err != nil || d <= 0) {
		return errors.NewValidation("source.timeout", fmt.Sprintf("invalid duration %q", c.Source.Timeout))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return errors.NewValidation("logging.level", err.Error())
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		return errors.NewValidation("logging.format", err.Error())
	}

	return nil
}

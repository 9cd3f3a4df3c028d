// Package config loads the tabledb configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the content of the YAML configuration file.
type Config struct {
	// Path is the database file. Its extension selects the codec.
	Path string `yaml:"path"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
	// HTTP is the listen address of `tabledb serve`.
	HTTP string `yaml:"http"`
	// Watch reloads the database when the file is modified externally.
	Watch bool `yaml:"watch"`
	// History commits the database file to a git repository in its directory
	// after every change.
	History bool `yaml:"history"`
	// RateLimitPerMin is the number of API requests allowed per minute per
	// client. 0 disables rate limiting.
	RateLimitPerMin int `yaml:"rate_limit_per_min"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Path:            "tabledb.json",
		LogLevel:        "info",
		HTTP:            "localhost:8080",
		RateLimitPerMin: 600,
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is chosen by the user
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read %s: %w", path, err)
	}
	d := yaml.NewDecoder(bytes.NewReader(data))
	d.KnownFields(true)
	if err := d.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Path == "" {
		errs = append(errs, errors.New("path is required"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.HTTP != "" {
		addr := c.HTTP
		if strings.HasPrefix(addr, ":") {
			addr = "localhost" + addr
		}
		if _, _, err := net.SplitHostPort(addr); err != nil {
			errs = append(errs, fmt.Errorf("http: %w", err))
		}
	}
	if c.RateLimitPerMin < 0 {
		errs = append(errs, fmt.Errorf("rate_limit_per_min must be >= 0, got %d", c.RateLimitPerMin))
	}
	return errors.Join(errs...)
}

// ParseLevel converts a log level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %q", s)
	}
}

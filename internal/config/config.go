// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - Errors returned from this package wrap ErrInvalidConfig or ErrLoadConfig.
package config

import (
	"fmt"
	"strings"

	"github.com/okian/leadscore/internal/domain/lead"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":5000".
	Addr string `koanf:"addr"`

	// DatasetPath is the reference lead table (.csv or .xlsx).
	DatasetPath string `koanf:"dataset_path"`

	// ModelPath is the trained classifier artifact.
	ModelPath string `koanf:"model_path"`

	// CORSOrigin is sent as Access-Control-Allow-Origin on /api routes.
	CORSOrigin string `koanf:"cors_origin"`

	// DefaultSort orders listings when the request has no sort parameter.
	DefaultSort string `koanf:"default_sort"`

	// EncodeWithModel encodes listings with the code table stored in the
	// model artifact instead of one derived from the dataset.
	EncodeWithModel bool `koanf:"encode_with_model"`

	// ShutdownTimeoutSec bounds graceful shutdown.
	ShutdownTimeoutSec int `koanf:"shutdown_timeout_sec"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":5000",
		DatasetPath:        "leads.csv",
		ModelPath:          "model.json",
		CORSOrigin:         "*",
		DefaultSort:        string(lead.SortNone),
		ShutdownTimeoutSec: 10,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.DatasetPath) == "" {
		return fmt.Errorf("%w: dataset_path must not be empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.ModelPath) == "" {
		return fmt.Errorf("%w: model_path must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if _, err := lead.ParseSortOrder(c.DefaultSort); err != nil {
		return fmt.Errorf("%w: default_sort: %v", ErrInvalidConfig, err)
	}
	if c.ShutdownTimeoutSec < 0 {
		return fmt.Errorf("%w: shutdown_timeout_sec must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Sort returns DefaultSort parsed. Call Validate first.
func (c *Config) Sort() lead.SortOrder {
	s, err := lead.ParseSortOrder(c.DefaultSort)
	if err != nil {
		return lead.SortNone
	}
	return s
}

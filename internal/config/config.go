// Package config defines service configuration and its loading.
package config

import (
	"fmt"
	"time"

	"github.com/okian/admstats/internal/domain/localtime"
	"github.com/okian/admstats/internal/domain/view"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataDir holds latest.json.
	DataDir string `koanf:"data_dir"`

	// RegionsPath points at the region name -> ISO code table.
	RegionsPath string `koanf:"regions_path"`

	// ArchiveDSN is the SQLite dump archive; empty disables archiving.
	ArchiveDSN string `koanf:"archive_dsn"`

	// Timezone is the IANA zone used for day bucketing.
	Timezone string `koanf:"timezone"`

	// Upstream SOAP endpoint. An empty FetchURL disables fetching.
	FetchURL      string        `koanf:"fetch_url"`
	FetchLogin    string        `koanf:"fetch_login"`
	FetchPassword string        `koanf:"fetch_password"`
	FetchTimeout  time.Duration `koanf:"fetch_timeout"`

	// RefreshInterval is the time between refresh attempts.
	RefreshInterval time.Duration `koanf:"refresh_interval"`

	// FreshnessWindow skips a fetch while the current snapshot is younger.
	FreshnessWindow time.Duration `koanf:"freshness_window"`

	// RefreshEnabled runs the background refresh loop.
	RefreshEnabled bool `koanf:"refresh_enabled"`

	// History is the small-chart series of past campaigns.
	History view.History `koanf:"history"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		DataDir:         "data",
		RegionsPath:     "data/regions_map.json",
		ArchiveDSN:      "data/archive.db",
		Timezone:        localtime.DefaultZone,
		FetchTimeout:    5 * time.Minute,
		RefreshInterval: 90 * time.Minute,
		FreshnessWindow: 2 * time.Hour,
		RefreshEnabled:  true,
		History:         view.DefaultHistory(),
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DataDir == "":
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	case c.RegionsPath == "":
		return fmt.Errorf("%w: regions_path must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.FetchTimeout <= 0:
		return fmt.Errorf("%w: fetch_timeout must be positive", ErrInvalidConfig)
	case c.RefreshInterval <= 0:
		return fmt.Errorf("%w: refresh_interval must be positive", ErrInvalidConfig)
	case c.FreshnessWindow < 0:
		return fmt.Errorf("%w: freshness_window must not be negative", ErrInvalidConfig)
	case c.History.CurrentYear < 0:
		return fmt.Errorf("%w: history.current_year must not be negative", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	return localtime.Load(c.Timezone)
}

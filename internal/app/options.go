package service

import (
	"time"

	"github.com/okian/admstats/internal/adapters/refresh"
	"github.com/okian/admstats/internal/domain/view"
	"github.com/okian/admstats/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDataDir sets the directory holding latest.json.
func WithDataDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.dataDir = dir
		}
	}
}

// WithRegionsPath sets the region table file.
func WithRegionsPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.regionsPath = path
		}
	}
}

// WithArchiveDSN enables the SQLite dump archive.
func WithArchiveDSN(dsn string) Option {
	return func(s *Service) {
		s.archiveDSN = dsn
	}
}

// WithLocation sets the zone used for day bucketing.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithHistory sets the historical small-chart series.
func WithHistory(h view.History) Option {
	return func(s *Service) {
		s.history = h
	}
}

// WithUpstream configures the SOAP fetch source.
func WithUpstream(url, login, password string, timeout time.Duration) Option {
	return func(s *Service) {
		s.fetchURL = url
		s.fetchLogin = login
		s.fetchPassword = password
		if timeout > 0 {
			s.fetchTimeout = timeout
		}
	}
}

// WithFetcher replaces the upstream client.
func WithFetcher(f refresh.Fetcher) Option {
	return func(s *Service) {
		s.fetcher = f
	}
}

// WithRefreshInterval sets the time between refresh attempts.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refreshInterval = d
		}
	}
}

// WithFreshnessWindow sets the age below which a snapshot is not refetched.
func WithFreshnessWindow(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.freshness = d
		}
	}
}

// WithRefreshEnabled toggles the background refresh loop.
func WithRefreshEnabled(enabled bool) Option {
	return func(s *Service) {
		s.refreshEnabled = enabled
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

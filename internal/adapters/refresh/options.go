package refresh

import (
	"context"
	"time"

	"github.com/okian/admstats/internal/domain/model"
	"github.com/okian/admstats/pkg/logger"
)

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithInterval sets the time between refresh attempts.
func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithFreshness sets how old the current snapshot may be before a fetch.
func WithFreshness(d time.Duration) Option {
	return func(w *Worker) {
		if d >= 0 {
			w.freshness = d
		}
	}
}

// WithArchive stores every fetched snapshot in a.
func WithArchive(a Archiver) Option {
	return func(w *Worker) {
		w.archive = a
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

// WithOnPublish registers a hook called after a new snapshot is published.
func WithOnPublish(fn func(ctx context.Context, snap *model.Snapshot)) Option {
	return func(w *Worker) {
		w.onPublish = fn
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

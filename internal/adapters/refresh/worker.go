// Package refresh periodically pulls a new snapshot, merges it with the
// previous one and publishes the result.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/admstats/internal/adapters/repository"
	"github.com/okian/admstats/internal/adapters/storage"
	"github.com/okian/admstats/internal/domain/model"
	"github.com/okian/admstats/pkg/logger"
	"github.com/okian/admstats/pkg/metrics"
)

// Default refresh configuration.
const (
	DefaultInterval  = 90 * time.Minute
	DefaultFreshness = 2 * time.Hour
)

// Fetcher downloads the current applications list.
type Fetcher interface {
	Fetch(ctx context.Context) (*model.Snapshot, error)
}

// Store keeps the latest snapshot.
type Store interface {
	Latest(ctx context.Context) (*model.Snapshot, error)
	Save(ctx context.Context, snap *model.Snapshot) error
}

// Archiver keeps every fetched snapshot.
type Archiver interface {
	Append(ctx context.Context, snap *model.Snapshot) (int64, error)
}

// Holder publishes the snapshot readers see.
type Holder interface {
	Load() (*model.Snapshot, error)
	Publish(snap *model.Snapshot) *model.Snapshot
}

// Result describes one refresh run.
type Result struct {
	RunID    string
	Outcome  string
	Snapshot *model.Snapshot
	// Seq is the archive sequence number, zero when not archived.
	Seq int64
}

// Worker runs refreshes on a fixed interval.
type Worker struct {
	fetcher Fetcher
	store   Store
	holder  Holder
	archive Archiver

	interval  time.Duration
	freshness time.Duration
	now       func() time.Time
	onPublish func(ctx context.Context, snap *model.Snapshot)

	mu sync.Mutex // one run at a time

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewWorker creates a refresh worker.
func NewWorker(fetcher Fetcher, store Store, holder Holder, opts ...Option) *Worker {
	w := &Worker{
		fetcher:   fetcher,
		store:     store,
		holder:    holder,
		interval:  DefaultInterval,
		freshness: DefaultFreshness,
		now:       time.Now,
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run refreshes immediately and then on every tick until ctx is canceled or
// Shutdown is called. Failed runs are logged and retried on the next tick.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error(ctx, "refresh failed", logger.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case <-ticker.C:
		}
	}
}

// Shutdown stops the loop and waits for the current run to finish.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// RunOnce performs one refresh. It skips the fetch while the current snapshot
// is younger than the freshness window.
func (w *Worker) RunOnce(ctx context.Context) (Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	res := Result{RunID: uuid.NewString()}
	log := w.logger.With(logger.String("run_id", res.RunID))

	current, err := w.current(ctx)
	if err != nil {
		res.Outcome = metrics.RefreshFailed
		metrics.RecordRefresh(res.Outcome)
		metrics.RecordErrorByComponent("refresh", "load_error")
		return res, err
	}

	if current != nil && w.now().Sub(current.CapturedAt) < w.freshness {
		res.Outcome = metrics.RefreshFresh
		res.Snapshot = current
		metrics.RecordRefresh(res.Outcome)
		log.Info(ctx, "snapshot is fresh, skipping fetch",
			logger.Time("captured_at", current.CapturedAt),
		)
		return res, nil
	}

	fetched, err := w.fetcher.Fetch(ctx)
	if err != nil {
		res.Outcome = metrics.RefreshFailed
		metrics.RecordRefresh(res.Outcome)
		metrics.RecordErrorByComponent("refresh", "fetch_error")
		return res, fmt.Errorf("fetch: %w", err)
	}
	merged := model.Merge(current, fetched)

	if err := w.store.Save(ctx, merged); err != nil {
		res.Outcome = metrics.RefreshFailed
		metrics.RecordRefresh(res.Outcome)
		metrics.RecordErrorByComponent("refresh", "save_error")
		return res, fmt.Errorf("save: %w", err)
	}
	if w.archive != nil {
		seq, err := w.archive.Append(ctx, merged)
		if err != nil {
			metrics.RecordErrorByComponent("refresh", "archive_error")
			log.Warn(ctx, "failed to archive snapshot", logger.Error(err))
		} else {
			res.Seq = seq
			metrics.RecordArchiveDump()
		}
	}

	w.holder.Publish(merged)
	res.Outcome = metrics.RefreshFetched
	res.Snapshot = merged
	metrics.RecordRefresh(res.Outcome)
	metrics.UpdateRefreshLastUnix(w.now().Unix())
	log.Info(ctx, "published snapshot",
		logger.Time("captured_at", merged.CapturedAt),
		logger.Int("records", merged.Len()),
		logger.Int("applicants", merged.Applicants()),
		logger.Int64("archive_seq", res.Seq),
	)

	if w.onPublish != nil {
		w.onPublish(ctx, merged)
	}
	return res, nil
}

// current returns the published snapshot, falling back to the stored one and
// publishing it. A missing snapshot is not an error.
func (w *Worker) current(ctx context.Context) (*model.Snapshot, error) {
	snap, err := w.holder.Load()
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, repository.ErrNoSnapshot) {
		return nil, err
	}

	snap, err = w.store.Latest(ctx)
	switch {
	case errors.Is(err, storage.ErrNoSnapshot):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("load stored snapshot: %w", err)
	}
	w.holder.Publish(snap)
	return snap, nil
}

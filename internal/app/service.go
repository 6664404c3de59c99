// Package service wires snapshot storage, refresh and view assembly into the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/admstats/internal/adapters/fetch"
	"github.com/okian/admstats/internal/adapters/refresh"
	"github.com/okian/admstats/internal/adapters/repository"
	"github.com/okian/admstats/internal/adapters/storage"
	"github.com/okian/admstats/internal/domain/localtime"
	"github.com/okian/admstats/internal/domain/model"
	"github.com/okian/admstats/internal/domain/region"
	"github.com/okian/admstats/internal/domain/taxonomy"
	"github.com/okian/admstats/internal/domain/view"
	"github.com/okian/admstats/pkg/logger"
	"github.com/okian/admstats/pkg/metrics"
)

const (
	systemMetricsInterval = 15 * time.Second
	shutdownTimeout       = 30 * time.Second
	statsRecentDumps      = 5
)

// Service serves the main page over the current snapshot.
type Service struct {
	mu sync.RWMutex

	// Core components
	holder  *repository.SnapshotHolder
	views   *repository.ViewCache
	store   *storage.FileStore
	archive *storage.Archive
	fetcher refresh.Fetcher
	worker  *refresh.Worker

	// Configuration
	dataDir         string
	regionsPath     string
	archiveDSN      string
	location        *time.Location
	history         view.History
	fetchURL        string
	fetchLogin      string
	fetchPassword   string
	fetchTimeout    time.Duration
	refreshInterval time.Duration
	freshness       time.Duration
	refreshEnabled  bool
	now             func() time.Time

	// State
	started     bool
	running     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	lastPublish atomic.Int64

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dataDir:         "data",
		regionsPath:     "data/regions_map.json",
		history:         view.DefaultHistory(),
		fetchTimeout:    5 * time.Minute,
		refreshInterval: refresh.DefaultInterval,
		freshness:       refresh.DefaultFreshness,
		refreshEnabled:  true,
		now:             time.Now,
		logger:          nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start loads the region table and the last stored snapshot, then starts the
// refresh loop. A missing region table is fatal; a missing snapshot is not.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting admission statistics service...")

	table, err := region.LoadTableFile(s.regionsPath)
	if err != nil {
		return fmt.Errorf("load regions: %w", err)
	}
	resolver := region.NewResolver(table)

	if s.location == nil {
		loc, err := localtime.Load(localtime.DefaultZone)
		if err != nil {
			return fmt.Errorf("load time zone: %w", err)
		}
		s.location = loc
	}

	store, err := storage.NewFileStore(s.dataDir)
	if err != nil {
		return fmt.Errorf("open file store: %w", err)
	}
	s.store = store

	if s.archiveDSN != "" {
		archive, err := storage.OpenArchive(s.archiveDSN)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		s.archive = archive
	}

	s.holder = repository.NewSnapshotHolder()
	s.views = repository.NewViewCache(s.assembler(resolver, s.location, s.history), repository.WithClock(s.now))

	if err := s.restore(ctx); err != nil {
		s.closeArchive(ctx)
		return err
	}

	if s.fetcher == nil && s.fetchURL != "" {
		s.fetcher = fetch.New(s.fetchURL,
			fetch.WithCredentials(s.fetchLogin, s.fetchPassword),
			fetch.WithTimeout(s.fetchTimeout),
			fetch.WithClock(s.now),
			fetch.WithLogger(s.logger.Named("fetch")),
		)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.fetcher != nil {
		opts := []refresh.Option{
			refresh.WithInterval(s.refreshInterval),
			refresh.WithFreshness(s.freshness),
			refresh.WithClock(s.now),
			refresh.WithOnPublish(s.warm),
			refresh.WithLogger(s.logger.Named("refresh")),
		}
		if s.archive != nil {
			opts = append(opts, refresh.WithArchive(s.archive))
		}
		s.worker = refresh.NewWorker(s.fetcher, s.store, s.holder, opts...)

		if s.refreshEnabled {
			s.running = true
			go s.worker.Run(runCtx)
		}
	}

	s.wg.Add(1)
	go s.updateSystemMetrics(runCtx)

	s.started = true
	s.logger.Info(ctx, "admission statistics service started",
		logger.String("dataDir", s.dataDir),
		logger.Int("regions", table.Len()),
		logger.Bool("archive", s.archive != nil),
		logger.Bool("refresh", s.running),
		logger.Duration("refreshInterval", s.refreshInterval),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping admission statistics service...")

	s.cancel()
	if s.running {
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		if err := s.worker.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(ctx, "refresh worker did not stop", logger.Error(err))
		}
		cancel()
		s.running = false
	}
	s.wg.Wait()
	s.closeArchive(ctx)

	s.started = false
	s.logger.Info(ctx, "admission statistics service stopped")
}

// MainPage returns the page for the current snapshot, recomputing it only
// when the snapshot has changed since the last call.
func (s *Service) MainPage(ctx context.Context) (*view.MainPage, error) {
	s.mu.RLock()
	holder, views := s.holder, s.views
	s.mu.RUnlock()

	if holder == nil {
		return nil, ErrNotReady
	}
	snap, err := holder.Load()
	if errors.Is(err, repository.ErrNoSnapshot) {
		return nil, ErrNotReady
	}
	if err != nil {
		return nil, err
	}

	page, _, err := views.Get(ctx, snap)
	return page, err
}

// Refresh runs one refresh immediately, honoring the freshness window.
func (s *Service) Refresh(ctx context.Context) (refresh.Result, error) {
	s.mu.RLock()
	worker := s.worker
	s.mu.RUnlock()

	if worker == nil {
		return refresh.Result{}, ErrNoUpstream
	}
	return worker.RunOnce(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"refreshEnabled":  s.refreshEnabled,
		"refreshRunning":  s.running,
		"refreshInterval": s.refreshInterval.String(),
		"freshnessWindow": s.freshness.String(),
		"archive":         s.archiveDSN != "",
		"snapshotLoaded":  false,
	}

	if !s.started {
		return stats
	}

	if snap, err := s.holder.Load(); err == nil {
		stats["snapshotLoaded"] = true
		stats["snapshotVersion"] = snap.Version()
		stats["capturedAt"] = snap.CapturedAt.Format(time.RFC3339)
		stats["records"] = snap.Len()
		stats["applicants"] = snap.Applicants()
	}
	if v, ok := s.views.Version(); ok {
		stats["viewVersion"] = v
	}
	if unix := s.lastPublish.Load(); unix > 0 {
		stats["lastPublish"] = time.Unix(unix, 0).UTC().Format(time.RFC3339)
	}
	if s.archive != nil {
		ctx := context.Background()
		if n, err := s.archive.Count(ctx); err == nil {
			stats["archivedDumps"] = n
		}
		if dumps, err := s.archive.List(ctx, statsRecentDumps); err == nil {
			stats["recentDumps"] = dumps
		}
	}

	return stats
}

// assembler returns the view computation bound to the loaded reference data.
func (s *Service) assembler(resolver *region.Resolver, loc *time.Location, history view.History) repository.ComputeFunc {
	return func(snap *model.Snapshot, now time.Time) (*view.MainPage, error) {
		start := time.Now()
		page, err := view.Assemble(view.Input{
			Snapshot: snap,
			Now:      now,
			Location: loc,
			Resolver: resolver,
			History:  history,
		})
		metrics.RecordAssembleLatency(float64(time.Since(start).Microseconds()) / 1000)

		ctx := context.Background()
		if err != nil {
			if errors.Is(err, taxonomy.ErrUnknownLabel) {
				metrics.RecordTaxonomyError()
			}
			metrics.RecordErrorByComponent("view", "assemble_error")
			s.logger.Error(ctx, "failed to assemble main page",
				logger.Int64("version", snap.Version()),
				logger.Error(err),
			)
			return nil, err
		}

		d := page.Diagnostics
		metrics.UpdateViewDiagnostics(d.UnmatchedRegions, d.MissingQuotas)
		if d.MissingCapacity != nil {
			s.logger.Warn(ctx, "programs without quota capacity",
				logger.Int("quotas", d.MissingQuotas),
				logger.Error(d.MissingCapacity),
			)
		}
		s.logger.Debug(ctx, "assembled main page",
			logger.Int64("version", snap.Version()),
			logger.Int("records", d.Records),
			logger.Int("unmatchedRegions", d.UnmatchedRegions),
		)
		return page, nil
	}
}

// restore publishes the stored snapshot, falling back to the newest archived
// dump.
func (s *Service) restore(ctx context.Context) error {
	snap, err := s.store.Latest(ctx)
	if errors.Is(err, storage.ErrNoSnapshot) && s.archive != nil {
		snap, err = s.archive.Latest(ctx)
	}
	switch {
	case errors.Is(err, storage.ErrNoSnapshot):
		s.logger.Info(ctx, "no stored snapshot, waiting for first refresh")
		return nil
	case err != nil:
		return fmt.Errorf("restore snapshot: %w", err)
	}

	s.holder.Publish(snap)
	s.logger.Info(ctx, "restored snapshot",
		logger.Time("capturedAt", snap.CapturedAt),
		logger.Int("records", snap.Len()),
	)
	return nil
}

// warm precomputes the page for a freshly published snapshot.
func (s *Service) warm(ctx context.Context, snap *model.Snapshot) {
	s.lastPublish.Store(s.now().Unix())
	if _, _, err := s.views.Get(ctx, snap); err != nil && ctx.Err() == nil {
		s.logger.Warn(ctx, "failed to precompute main page", logger.Error(err))
	}
}

func (s *Service) updateSystemMetrics(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		metrics.UpdateSystemMemoryUsage(m.HeapInuse)
		metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) closeArchive(ctx context.Context) {
	if s.archive == nil {
		return
	}
	if err := s.archive.Close(); err != nil {
		s.logger.Warn(ctx, "failed to close archive", logger.Error(err))
	}
	s.archive = nil
}

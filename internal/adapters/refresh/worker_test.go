package refresh_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/admstats/internal/adapters/refresh"
	"github.com/okian/admstats/internal/adapters/repository"
	"github.com/okian/admstats/internal/adapters/storage"
	"github.com/okian/admstats/internal/domain/model"
	"github.com/okian/admstats/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockFetcher struct {
	mu    sync.Mutex
	snaps []*model.Snapshot
	err   error
	calls int
}

func (m *mockFetcher) Fetch(ctx context.Context) (*model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.snaps) == 0 {
		return nil, errors.New("no more snapshots")
	}
	s := m.snaps[0]
	m.snaps = m.snaps[1:]
	return s, nil
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockArchive struct {
	mu    sync.Mutex
	dumps []*model.Snapshot
	err   error
}

func (m *mockArchive) Append(ctx context.Context, snap *model.Snapshot) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.dumps = append(m.dumps, snap)
	return int64(len(m.dumps)), nil
}

func record(applicant, program string, firstSeen time.Time) *model.ApplicationRecord {
	return &model.ApplicationRecord{
		ApplicantID:      applicant,
		Program:          program,
		SelectedPriority: 1,
		FirstSeenAt:      firstSeen,
	}
}

func TestRunOnce(t *testing.T) {
	convey.Convey("Given a refresh worker over a file store", t, func() {
		ctx := context.Background()
		store, err := storage.NewFileStore(t.TempDir())
		convey.So(err, convey.ShouldBeNil)
		holder := repository.NewSnapshotHolder()

		t0 := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
		now := t0
		clock := func() time.Time { return now }

		first := model.NewSnapshot(t0, []*model.ApplicationRecord{record("A1", "Math", t0)})
		fetcher := &mockFetcher{snaps: []*model.Snapshot{first}}
		archive := &mockArchive{}

		var published []*model.Snapshot
		w := refresh.NewWorker(fetcher, store, holder,
			refresh.WithClock(clock),
			refresh.WithArchive(archive),
			refresh.WithFreshness(2*time.Hour),
			refresh.WithOnPublish(func(_ context.Context, s *model.Snapshot) {
				published = append(published, s)
			}),
		)

		convey.Convey("When nothing is stored yet", func() {
			res, err := w.RunOnce(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Outcome, convey.ShouldEqual, metrics.RefreshFetched)
			convey.So(res.RunID, convey.ShouldNotBeEmpty)
			convey.So(res.Seq, convey.ShouldEqual, 1)

			convey.Convey("Then the snapshot is saved, archived and published", func() {
				got, err := holder.Load()
				convey.So(err, convey.ShouldBeNil)
				convey.So(got, convey.ShouldEqual, first)

				stored, err := store.Latest(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(stored.Len(), convey.ShouldEqual, 1)

				convey.So(archive.dumps, convey.ShouldHaveLength, 1)
				convey.So(published, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When the current snapshot is within the freshness window", func() {
			_, err := w.RunOnce(ctx)
			convey.So(err, convey.ShouldBeNil)

			now = t0.Add(time.Hour)
			res, err := w.RunOnce(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Outcome, convey.ShouldEqual, metrics.RefreshFresh)
			convey.So(fetcher.callCount(), convey.ShouldEqual, 1)
			convey.So(published, convey.ShouldHaveLength, 1)
		})

		convey.Convey("When the snapshot is stale", func() {
			_, err := w.RunOnce(ctx)
			convey.So(err, convey.ShouldBeNil)

			t1 := t0.Add(3 * time.Hour)
			now = t1
			fetcher.snaps = append(fetcher.snaps, model.NewSnapshot(t1, []*model.ApplicationRecord{
				record("A1", "Math", t1),
				record("A2", "Physics", t1),
			}))

			res, err := w.RunOnce(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Outcome, convey.ShouldEqual, metrics.RefreshFetched)

			convey.Convey("Then first-seen times carry over", func() {
				got, err := holder.Load()
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.Len(), convey.ShouldEqual, 2)

				old, ok := got.Lookup("A1", "Math")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(old.FirstSeenAt.Equal(t0), convey.ShouldBeTrue)

				fresh, ok := got.Lookup("A2", "Physics")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(fresh.FirstSeenAt.Equal(t1), convey.ShouldBeTrue)
				convey.So(archive.dumps, convey.ShouldHaveLength, 2)
			})
		})

		convey.Convey("When a stored snapshot exists but nothing is published", func() {
			convey.So(store.Save(ctx, first), convey.ShouldBeNil)
			now = t0.Add(30 * time.Minute)

			res, err := w.RunOnce(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Outcome, convey.ShouldEqual, metrics.RefreshFresh)
			got, err := holder.Load()
			convey.So(err, convey.ShouldBeNil)
			convey.So(got.Len(), convey.ShouldEqual, 1)
			convey.So(fetcher.callCount(), convey.ShouldEqual, 0)
		})

		convey.Convey("When the fetch fails", func() {
			fetcher.err = errors.New("connection refused")

			res, err := w.RunOnce(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(res.Outcome, convey.ShouldEqual, metrics.RefreshFailed)
			_, err = holder.Load()
			convey.So(errors.Is(err, repository.ErrNoSnapshot), convey.ShouldBeTrue)
			convey.So(published, convey.ShouldBeEmpty)
		})

		convey.Convey("When archiving fails", func() {
			archive.err = errors.New("disk full")

			res, err := w.RunOnce(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Outcome, convey.ShouldEqual, metrics.RefreshFetched)
			convey.So(res.Seq, convey.ShouldEqual, 0)
			_, err = holder.Load()
			convey.So(err, convey.ShouldBeNil)
		})
	})
}

func TestRunAndShutdown(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		store, err := storage.NewFileStore(t.TempDir())
		convey.So(err, convey.ShouldBeNil)
		holder := repository.NewSnapshotHolder()
		fetcher := &mockFetcher{snaps: []*model.Snapshot{
			model.NewSnapshot(time.Now(), []*model.ApplicationRecord{record("A1", "Math", time.Now())}),
		}}

		w := refresh.NewWorker(fetcher, store, holder, refresh.WithInterval(time.Hour))
		go w.Run(context.Background())

		convey.Convey("Then the first refresh happens without waiting for a tick", func() {
			deadline := time.Now().Add(2 * time.Second)
			for fetcher.callCount() == 0 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			convey.So(fetcher.callCount(), convey.ShouldEqual, 1)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
		})
	})
}

func TestRunStopsOnContextCancel(t *testing.T) {
	convey.Convey("Given a worker whose fetches fail", t, func() {
		store, err := storage.NewFileStore(t.TempDir())
		convey.So(err, convey.ShouldBeNil)
		fetcher := &mockFetcher{err: errors.New("unavailable")}
		w := refresh.NewWorker(fetcher, store, repository.NewSnapshotHolder(), refresh.WithInterval(10*time.Millisecond))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			w.Run(ctx)
			close(done)
		}()

		convey.Convey("Then it keeps retrying until the context is canceled", func() {
			deadline := time.Now().Add(2 * time.Second)
			for fetcher.callCount() < 2 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			convey.So(fetcher.callCount(), convey.ShouldBeGreaterThanOrEqualTo, 2)

			cancel()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("worker did not stop")
			}
		})
	})
}

package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/admstats/internal/domain/model"
	"github.com/okian/admstats/internal/domain/view"
)

func snapshotAt(sec int64) *model.Snapshot {
	return model.NewSnapshot(time.Unix(sec, 0), []*model.ApplicationRecord{
		{ApplicantID: "a", Program: "p", SelectedPriority: 1},
	})
}

func TestSnapshotHolder(t *testing.T) {
	h := NewSnapshotHolder()

	if _, err := h.Load(); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}

	first := snapshotAt(100)
	if prev := h.Publish(first); prev != nil {
		t.Errorf("expected no previous snapshot, got %v", prev)
	}
	got, err := h.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != first {
		t.Error("expected the published snapshot")
	}

	second := snapshotAt(200)
	if prev := h.Publish(second); prev != first {
		t.Error("expected publish to return the replaced snapshot")
	}
	if got, _ := h.Load(); got != second {
		t.Error("expected the second snapshot")
	}
}

func TestSnapshotHolder_ConcurrentReaders(t *testing.T) {
	h := NewSnapshotHolder()
	h.Publish(snapshotAt(1))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				s, err := h.Load()
				if err != nil || s.Len() != 1 {
					t.Errorf("reader saw a bad snapshot: %v", err)
					return
				}
			}
		}()
	}
	for i := int64(2); i < 100; i++ {
		h.Publish(snapshotAt(i))
	}
	wg.Wait()
}

func countingCompute(calls *atomic.Int32, delay time.Duration) ComputeFunc {
	return func(snap *model.Snapshot, now time.Time) (*view.MainPage, error) {
		calls.Add(1)
		time.Sleep(delay)
		return &view.MainPage{LastUpdate: snap.CapturedAt.UTC().Format(time.DateTime)}, nil
	}
}

func TestViewCache_RecomputesOnVersionChange(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	c := NewViewCache(countingCompute(&calls, 0))

	s1 := snapshotAt(1000)
	p1, hit, err := c.Get(ctx, s1)
	if err != nil || hit {
		t.Fatalf("expected a miss, got hit=%v err=%v", hit, err)
	}

	again, hit, err := c.Get(ctx, s1)
	if err != nil || !hit {
		t.Fatalf("expected a hit, got hit=%v err=%v", hit, err)
	}
	if again != p1 {
		t.Error("expected the cached page")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 compute, got %d", n)
	}

	s2 := snapshotAt(2000)
	p2, hit, err := c.Get(ctx, s2)
	if err != nil || hit {
		t.Fatalf("expected a miss, got hit=%v err=%v", hit, err)
	}
	if p2 == p1 {
		t.Error("expected a new page for a new version")
	}
	if v, ok := c.Version(); !ok || v != 2000 {
		t.Errorf("expected version 2000, got %d", v)
	}
}

func TestViewCache_CoalescesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	c := NewViewCache(countingCompute(&calls, 50*time.Millisecond))
	s := snapshotAt(3000)

	var wg sync.WaitGroup
	pages := make([]*view.MainPage, 16)
	for i := range pages {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, _, err := c.Get(ctx, s)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			pages[i] = p
		}(i)
	}
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 compute, got %d", n)
	}
	for _, p := range pages {
		if p != pages[0] {
			t.Fatal("expected every caller to share one page")
		}
	}
}

func TestViewCache_KeepsNewestVersion(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	c := NewViewCache(countingCompute(&calls, 0))

	if _, _, err := c.Get(ctx, snapshotAt(5000)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Get(ctx, snapshotAt(4000)); err != nil {
		t.Fatal(err)
	}
	if v, _ := c.Version(); v != 5000 {
		t.Errorf("expected the newer version to stay cached, got %d", v)
	}
}

func TestViewCache_Errors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	c := NewViewCache(func(*model.Snapshot, time.Time) (*view.MainPage, error) { return nil, boom })

	if _, _, err := c.Get(ctx, nil); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("expected ErrNoSnapshot, got %v", err)
	}
	if _, _, err := c.Get(ctx, snapshotAt(1)); !errors.Is(err, boom) {
		t.Errorf("expected compute error, got %v", err)
	}
	if _, ok := c.Version(); ok {
		t.Error("failed computes must not be cached")
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	slow := NewViewCache(func(*model.Snapshot, time.Time) (*view.MainPage, error) {
		time.Sleep(100 * time.Millisecond)
		return &view.MainPage{}, nil
	})
	if _, _, err := slow.Get(canceled, snapshotAt(1)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestViewCache_Clock(t *testing.T) {
	fixed := time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC)
	var seen time.Time
	c := NewViewCache(func(_ *model.Snapshot, now time.Time) (*view.MainPage, error) {
		seen = now
		return &view.MainPage{}, nil
	}, WithClock(func() time.Time { return fixed }))

	if _, _, err := c.Get(context.Background(), snapshotAt(1)); err != nil {
		t.Fatal(err)
	}
	if !seen.Equal(fixed) {
		t.Errorf("expected compute to see %v, got %v", fixed, seen)
	}
	if v, ok := c.Version(); !ok || v != 1 {
		t.Errorf("expected cached version 1, got %d (%v)", v, ok)
	}
}

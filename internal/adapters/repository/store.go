// Package repository holds the published snapshot and the view computed
// from it.
package repository

import (
	"sync/atomic"

	"github.com/okian/admstats/internal/domain/model"
	"github.com/okian/admstats/pkg/metrics"
)

// SnapshotHolder publishes whole snapshots. Readers see either the previous
// or the next snapshot, never a partial one.
type SnapshotHolder struct {
	current atomic.Pointer[model.Snapshot]
}

// NewSnapshotHolder returns an empty holder.
func NewSnapshotHolder() *SnapshotHolder {
	return &SnapshotHolder{}
}

// Load returns the current snapshot, or ErrNoSnapshot.
func (h *SnapshotHolder) Load() (*model.Snapshot, error) {
	s := h.current.Load()
	if s == nil {
		return nil, ErrNoSnapshot
	}
	return s, nil
}

// Publish swaps in s and returns the snapshot it replaced, if any.
// Publishing nil empties the holder.
func (h *SnapshotHolder) Publish(s *model.Snapshot) *model.Snapshot {
	prev := h.current.Swap(s)
	if s == nil {
		return prev
	}
	metrics.UpdateSnapshot(s.Len(), s.Applicants(), s.CapturedAt.Unix())
	return prev
}

package repository

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/admstats/internal/domain/model"
	"github.com/okian/admstats/internal/domain/view"
	"github.com/okian/admstats/pkg/metrics"
)

// ComputeFunc builds the page for a snapshot as of now.
type ComputeFunc func(snap *model.Snapshot, now time.Time) (*view.MainPage, error)

type entry struct {
	version int64
	page    *view.MainPage
}

// ViewCache keeps the page of the most recent snapshot version. A version
// change triggers one recompute; concurrent callers for the same version wait
// for it and share the result.
type ViewCache struct {
	compute ComputeFunc
	now     func() time.Time

	last  atomic.Pointer[entry]
	group singleflight.Group
}

// NewViewCache constructs a cache around compute.
func NewViewCache(compute ComputeFunc, opts ...Option) *ViewCache {
	c := &ViewCache{
		compute: compute,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the page for snap, computing it when the cached version differs.
// hit reports whether the cached page was used.
func (c *ViewCache) Get(ctx context.Context, snap *model.Snapshot) (page *view.MainPage, hit bool, err error) {
	if snap == nil {
		return nil, false, ErrNoSnapshot
	}
	version := snap.Version()
	if e := c.last.Load(); e != nil && e.version == version {
		metrics.RecordViewCacheHit()
		return e.page, true, nil
	}

	ch := c.group.DoChan(strconv.FormatInt(version, 10), func() (any, error) {
		if e := c.last.Load(); e != nil && e.version == version {
			return e.page, nil
		}
		metrics.RecordViewCacheMiss()
		p, err := c.compute(snap, c.now())
		if err != nil {
			return nil, err
		}
		c.store(&entry{version: version, page: p})
		return p, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*view.MainPage), false, nil
	}
}

// Version returns the cached snapshot version and whether anything is cached.
func (c *ViewCache) Version() (int64, bool) {
	e := c.last.Load()
	if e == nil {
		return 0, false
	}
	return e.version, true
}

// store keeps e unless a newer version is already cached.
func (c *ViewCache) store(e *entry) {
	for {
		cur := c.last.Load()
		if cur != nil && cur.version > e.version {
			return
		}
		if c.last.CompareAndSwap(cur, e) {
			return
		}
	}
}

package service

import (
	"errors"
	"fmt"

	"github.com/okian/admstats/internal/domain/view"
)

var (
	// ErrNotReady is returned while no snapshot has been loaded.
	ErrNotReady = fmt.Errorf("service not ready: %w", view.ErrNoSnapshot)
	// ErrNoUpstream is returned by Refresh when no fetch source is configured.
	ErrNoUpstream = errors.New("no upstream configured")
)

package repository

import "time"

// Option applies a configuration option to the ViewCache.
type Option func(*ViewCache)

// WithClock overrides the time source passed to the compute function.
func WithClock(now func() time.Time) Option {
	return func(c *ViewCache) {
		if now != nil {
			c.now = now
		}
	}
}

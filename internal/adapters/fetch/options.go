package fetch

import (
	"net/http"
	"time"

	"github.com/okian/admstats/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithCredentials sets the basic auth login and password.
func WithCredentials(login, password string) Option {
	return func(c *Client) {
		c.login = login
		c.password = password
	}
}

// WithTimeout bounds a whole fetch.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithClock overrides the capture time source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMaxResponseBytes caps the response size.
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

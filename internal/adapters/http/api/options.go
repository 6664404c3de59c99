package api

import "github.com/okian/admstats/pkg/logger"

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for failures that are not reported to
// clients in full.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

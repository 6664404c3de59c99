package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrNotReady         = errors.New("statistics are not loaded yet")
	ErrInternal         = errors.New("statistics could not be computed")
)

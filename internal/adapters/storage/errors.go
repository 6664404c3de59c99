package storage

import "errors"

// Sentinel kinds for storage errors.
var (
	// ErrNoSnapshot reports that nothing has been stored yet.
	ErrNoSnapshot = errors.New("no stored snapshot")
	// ErrDumpNotFound reports an unknown archive sequence number.
	ErrDumpNotFound = errors.New("dump not found")
)

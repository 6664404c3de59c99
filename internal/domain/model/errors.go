package model

import "errors"

// Sentinel kinds for snapshot and record errors.
var (
	ErrInvalidRecord = errors.New("invalid application record")
	ErrDecode        = errors.New("decode snapshot failed")
)

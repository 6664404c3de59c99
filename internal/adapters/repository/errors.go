package repository

import "errors"

// ErrNoSnapshot is returned by reads before any snapshot has been published.
var ErrNoSnapshot = errors.New("no snapshot loaded")

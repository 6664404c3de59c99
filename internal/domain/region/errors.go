package region

import "errors"

// ErrTableUnavailable reports a region table that could not be loaded.
var ErrTableUnavailable = errors.New("region table unavailable")

package fetch

import "errors"

// ErrUpstream reports a failed or malformed upstream exchange.
var ErrUpstream = errors.New("upstream fetch failed")

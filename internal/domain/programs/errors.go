package programs

import "errors"

// ErrMissingQuotaCapacity reports a ranked quota whose capacity the upstream
// never supplied. It leaves that quota without a passing score and does not
// fail the pass.
var ErrMissingQuotaCapacity = errors.New("missing quota capacity")

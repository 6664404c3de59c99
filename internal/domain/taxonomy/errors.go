package taxonomy

import (
	"errors"
	"fmt"
)

// ErrUnknownLabel reports a raw label that has no canonical mapping.
var ErrUnknownLabel = errors.New("unknown taxonomy label")

// LabelError carries the taxonomy kind and the offending raw label.
type LabelError struct {
	Kind  Kind
	Label string
}

func (e *LabelError) Error() string {
	return fmt.Sprintf("%s: %s %q", ErrUnknownLabel, e.Kind, e.Label)
}

func (e *LabelError) Unwrap() error { return ErrUnknownLabel }

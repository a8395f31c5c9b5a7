package pulse

import (
	"errors"
	"fmt"
)

// Sentinel kinds for generation failures. All failures surfaced by the
// engine are synchronous, non-retryable validation errors; callers match
// on the kind with errors.Is.
var (
	// ErrShapeMismatch reports per-channel request arrays of unequal length.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrRange reports a subsystem index outside the declared subsystem count.
	ErrRange = errors.New("subsystem index out of range")

	// ErrImpossibleTiming reports a timing configuration that would produce
	// a negative-duration segment.
	ErrImpossibleTiming = errors.New("impossible timing")

	// ErrAmbiguousLookup reports an optimal-control catalog lookup that did
	// not resolve to exactly one pulse.
	ErrAmbiguousLookup = errors.New("ambiguous catalog lookup")

	// ErrUnsupported reports a request the engine deliberately does not
	// support, e.g. divergent duration increments in one composite call.
	ErrUnsupported = errors.New("unsupported configuration")
)

// Error wraps a deterministic generation failure with its sentinel kind.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

// Errorf builds an *Error of the given kind with a formatted message.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

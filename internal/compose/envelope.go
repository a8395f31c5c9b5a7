package compose

import "pulseweaver/internal/pulse"

// Envelope selects how a rotation pulse shapes its drive. The set is
// closed: requests carry a parsed Envelope value, never a raw string, so
// an unknown envelope is rejected when the request is built rather than
// during generation.
type Envelope string

const (
	// EnvelopeRectangular drives at constant amplitude for
	// fraction * rabi_period / 2.
	EnvelopeRectangular Envelope = "rectangular"

	// EnvelopeOptimal plays a pre-computed envelope pair from the
	// optimal-control catalog.
	EnvelopeOptimal Envelope = "optimal"
)

// ParseEnvelope validates an envelope selector.
func ParseEnvelope(s string) (Envelope, error) {
	switch Envelope(s) {
	case EnvelopeRectangular, EnvelopeOptimal:
		return Envelope(s), nil
	case "":
		return EnvelopeRectangular, nil
	default:
		return "", pulse.Errorf(pulse.ErrUnsupported, "unknown envelope %q", s)
	}
}

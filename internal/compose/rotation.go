// Package compose builds composite pulse elements — rotations, idles,
// readout gates — and assembles them into blocks and ensembles.
//
// It is the layer that ties the parameter vectors, the segment partitioner
// and the optimal-control catalog together. All entry points take their
// configuration explicitly: an immutable pulse.Params value per call and a
// narrow PulseSource capability for catalog lookups. Nothing in this
// package holds mutable cross-call state.
package compose

import (
	"log/slog"

	"pulseweaver/internal/catalog"
	"pulseweaver/internal/partition"
	"pulseweaver/internal/pulse"
)

// PulseSource is the capability the builder needs from the optimal-control
// catalog: an exact-match lookup. catalog.Catalog satisfies it.
type PulseSource interface {
	Find(subsystem int, fraction float64) []catalog.Pulse
}

// Builder produces rotation pulses. The zero value works for rectangular
// envelopes; optimal envelopes additionally need a Source.
type Builder struct {
	// Source resolves optimal-control pulses. May be nil when only
	// rectangular envelopes are requested.
	Source PulseSource

	// Log receives non-fatal warnings. Defaults to slog.Default().
	Log *slog.Logger
}

// Rotation describes one requested rotation pulse on a subset of
// subsystems.
//
// Frequencies, Amplitudes and RabiPeriods carry one slot per physical
// drive line (see paramvec); a line with zero amplitude is inactive and
// takes no part in the rectangular path.
type Rotation struct {
	// Fraction is the rotation angle in units of a full (pi) rotation:
	// 1 = pi, 0.5 = pi/2. Zero short-circuits to an empty element list.
	Fraction float64

	// PhaseDeg is the drive phase in degrees, applied to every active line.
	PhaseDeg float64

	Frequencies []float64
	Amplitudes  []float64
	RabiPeriods []float64

	Envelope Envelope

	// Targets names the 1-based subsystems an optimal pulse acts on, one
	// per active drive line. Required for EnvelopeOptimal, ignored (with a
	// warning) for rectangular envelopes.
	Targets []int

	// KeepSweptIdle converts an all-lines-inactive rotation into held-open
	// idle elements instead of silently dropping it, so a sweep increment
	// attached downstream survives on the timeline.
	KeepSweptIdle bool
}

func (b *Builder) log() *slog.Logger {
	if b.Log != nil {
		return b.Log
	}
	return slog.Default()
}

// RotationElements builds the element list realizing the rotation.
func (b *Builder) RotationElements(r Rotation) ([]pulse.Element, error) {
	n := len(r.Amplitudes)
	if len(r.Frequencies) != n || len(r.RabiPeriods) != n {
		return nil, pulse.Errorf(pulse.ErrShapeMismatch,
			"rotation arrays differ in length: amplitudes=%d frequencies=%d rabi_periods=%d",
			len(r.Amplitudes), len(r.Frequencies), len(r.RabiPeriods))
	}

	if r.Fraction == 0 {
		return nil, nil
	}

	active := activeLines(r.Amplitudes)

	if len(active) == 0 {
		if !r.KeepSweptIdle {
			return nil, nil
		}
		return b.heldOpenRotation(r)
	}

	switch r.Envelope {
	case EnvelopeRectangular, "":
		if len(r.Targets) != 0 {
			b.log().Warn("target subsystems ignored for rectangular envelope",
				"targets", r.Targets)
		}
		return b.rectangular(r, active)
	case EnvelopeOptimal:
		return b.optimal(r, active)
	default:
		return nil, pulse.Errorf(pulse.ErrUnsupported, "unknown envelope %q", r.Envelope)
	}
}

// rectangular realizes the rotation as constant-amplitude segments via the
// partitioner. Each active line drives for fraction * rabi_period / 2, and
// lines with unequal rabi periods are reconciled into a gap-free partition.
func (b *Builder) rectangular(r Rotation, active []int) ([]pulse.Element, error) {
	lengths := make([]float64, len(active))
	increments := make([]float64, len(active))
	amps := make([]float64, len(active))
	freqs := make([]float64, len(active))
	phases := make([]float64, len(active))
	for i, line := range active {
		lengths[i] = r.Fraction * r.RabiPeriods[line] / 2
		amps[i] = r.Amplitudes[line]
		freqs[i] = r.Frequencies[line]
		phases[i] = r.PhaseDeg
	}

	segments, err := partition.SplitVectors(lengths, increments, amps, freqs, phases)
	if err != nil {
		return nil, err
	}
	return segmentElements(segments, false), nil
}

// optimal realizes the rotation from catalog envelopes, one pulse per
// requested target subsystem.
func (b *Builder) optimal(r Rotation, active []int) ([]pulse.Element, error) {
	if len(r.Targets) == 0 {
		return nil, pulse.Errorf(pulse.ErrUnsupported,
			"optimal envelope requires explicit target subsystems")
	}
	if len(r.Targets) != len(active) {
		return nil, pulse.Errorf(pulse.ErrShapeMismatch,
			"%d target subsystems for %d active drive lines", len(r.Targets), len(active))
	}
	if b.Source == nil {
		return nil, pulse.Errorf(pulse.ErrAmbiguousLookup,
			"no optimal-control catalog configured")
	}

	el := pulse.Element{}
	for i, target := range r.Targets {
		matches := b.Source.Find(target, r.Fraction)
		if len(matches) != 1 {
			return nil, pulse.Errorf(pulse.ErrAmbiguousLookup,
				"%d optimal-control pulses for subsystem %d, fraction %g",
				len(matches), target, r.Fraction)
		}
		oc := matches[0]

		line := active[i]
		el.Tones = append(el.Tones, pulse.Tone{
			Amplitude: r.Amplitudes[line],
			Frequency: r.Frequencies[line],
			PhaseDeg:  r.PhaseDeg,
			Envelope: &pulse.EnvelopeRef{
				InPhasePath:    oc.InPhasePath,
				QuadraturePath: oc.QuadraturePath,
				Scale:          1,
			},
		})
		if oc.Length > el.Length {
			el.Length = oc.Length
		}
	}
	return []pulse.Element{el}, nil
}

// heldOpenRotation emits the rotation's timing with zero drive power,
// tagged held-open so downstream keeps the swept duration alive.
func (b *Builder) heldOpenRotation(r Rotation) ([]pulse.Element, error) {
	lengths := make([]float64, len(r.RabiPeriods))
	zeros := make([]float64, len(r.RabiPeriods))
	phases := make([]float64, len(r.RabiPeriods))
	for i, period := range r.RabiPeriods {
		lengths[i] = r.Fraction * period / 2
		phases[i] = r.PhaseDeg
	}

	segments, err := partition.SplitVectors(lengths, zeros, zeros, r.Frequencies, phases)
	if err != nil {
		return nil, err
	}
	return segmentElements(segments, true), nil
}

// segmentElements converts partition segments into timeline elements,
// dropping zero-amplitude tones from each element's tone list.
func segmentElements(segments []partition.Segment, heldOpen bool) []pulse.Element {
	els := make([]pulse.Element, 0, len(segments))
	for _, seg := range segments {
		el := pulse.Element{
			Length:    seg.Length,
			Increment: seg.Increment,
			HeldOpen:  heldOpen || seg.HeldOpen,
		}
		for ch, amp := range seg.Amplitudes {
			if amp == 0 && !el.HeldOpen {
				continue
			}
			el.Tones = append(el.Tones, pulse.Tone{
				Amplitude: amp,
				Frequency: seg.Frequencies[ch],
				PhaseDeg:  seg.PhasesDeg[ch],
			})
		}
		els = append(els, el)
	}
	return els
}

// activeLines returns the indices of drive lines with nonzero amplitude.
func activeLines(amps []float64) []int {
	var out []int
	for i, a := range amps {
		if a != 0 {
			out = append(out, i)
		}
	}
	return out
}

package compose

import (
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"pulseweaver/internal/catalog"
	"pulseweaver/internal/pulse"
)

func testLog() (*slog.Logger, *strings.Builder) {
	var buf strings.Builder
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

// fakeSource is an in-memory PulseSource.
type fakeSource struct {
	pulses []catalog.Pulse
}

func (f fakeSource) Find(subsystem int, fraction float64) []catalog.Pulse {
	var out []catalog.Pulse
	for _, p := range f.pulses {
		if p.Subsystem == subsystem && p.Fraction == fraction {
			out = append(out, p)
		}
	}
	return out
}

func TestRotationElements_ZeroFraction_EmptyList(t *testing.T) {
	b := &Builder{}
	els, err := b.RotationElements(Rotation{
		Fraction:    0,
		PhaseDeg:    90,
		Frequencies: []float64{1e9, 2e9},
		Amplitudes:  []float64{0.1, 0.2},
		RabiPeriods: []float64{100e-9, 100e-9},
		Envelope:    EnvelopeRectangular,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(els) != 0 {
		t.Fatalf("fraction 0 must produce no elements, got %d", len(els))
	}
}

func TestRotationElements_Rectangular_EqualRabiPeriods(t *testing.T) {
	b := &Builder{}
	els, err := b.RotationElements(Rotation{
		Fraction:    1,
		PhaseDeg:    0,
		Frequencies: []float64{1e9, 2e9},
		Amplitudes:  []float64{0.1, 0.2},
		RabiPeriods: []float64{100e-9, 100e-9},
		Envelope:    EnvelopeRectangular,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(els) != 1 {
		t.Fatalf("equal rabi periods must collapse to one element, got %d", len(els))
	}
	el := els[0]
	if math.Abs(el.Length-50e-9) > 1e-18 {
		t.Fatalf("pi length: got %g want 50e-9", el.Length)
	}
	if len(el.Tones) != 2 {
		t.Fatalf("expected 2 tones, got %d", len(el.Tones))
	}
}

func TestRotationElements_Rectangular_HalfRotation(t *testing.T) {
	b := &Builder{}
	els, err := b.RotationElements(Rotation{
		Fraction:    0.5,
		Frequencies: []float64{1e9},
		Amplitudes:  []float64{0.1},
		RabiPeriods: []float64{100e-9},
		Envelope:    EnvelopeRectangular,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(els[0].Length-25e-9) > 1e-18 {
		t.Fatalf("pi/2 length: got %g want 25e-9", els[0].Length)
	}
}

func TestRotationElements_Rectangular_UnequalRabiPeriods_Partitioned(t *testing.T) {
	b := &Builder{}
	els, err := b.RotationElements(Rotation{
		Fraction:    1,
		Frequencies: []float64{1e9, 2e9},
		Amplitudes:  []float64{0.1, 0.2},
		RabiPeriods: []float64{100e-9, 60e-9},
		Envelope:    EnvelopeRectangular,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(els) != 2 {
		t.Fatalf("unequal rabi periods must partition, got %d elements", len(els))
	}

	// First slice drives both lines, second only the slower one.
	if len(els[0].Tones) != 2 {
		t.Fatalf("first element tones: got %d want 2", len(els[0].Tones))
	}
	if len(els[1].Tones) != 1 {
		t.Fatalf("second element tones: got %d want 1", len(els[1].Tones))
	}
	if els[1].Tones[0].Frequency != 1e9 {
		t.Fatalf("solo tone must be the slower line, got %g", els[1].Tones[0].Frequency)
	}

	total := els[0].Length + els[1].Length
	if math.Abs(total-50e-9) > 1e-18 {
		t.Fatalf("total rotation length: got %g want 50e-9", total)
	}
}

func TestRotationElements_ZeroAmplitudeLines_Excluded(t *testing.T) {
	b := &Builder{}
	els, err := b.RotationElements(Rotation{
		Fraction:    1,
		Frequencies: []float64{1e9, 2e9, 3e9},
		Amplitudes:  []float64{0.1, 0, 0.3},
		RabiPeriods: []float64{100e-9, 100e-9, 100e-9},
		Envelope:    EnvelopeRectangular,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(els) != 1 {
		t.Fatalf("expected 1 element, got %d", len(els))
	}
	for _, tone := range els[0].Tones {
		if tone.Frequency == 2e9 {
			t.Fatalf("inactive line leaked into element: %+v", els[0].Tones)
		}
	}
}

func TestRotationElements_AllInactive_SilentlyDropped(t *testing.T) {
	b := &Builder{}
	els, err := b.RotationElements(Rotation{
		Fraction:    1,
		Frequencies: []float64{1e9},
		Amplitudes:  []float64{0},
		RabiPeriods: []float64{100e-9},
		Envelope:    EnvelopeRectangular,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(els) != 0 {
		t.Fatalf("expected no elements, got %d", len(els))
	}
}

func TestRotationElements_AllInactive_KeepSweptIdle(t *testing.T) {
	b := &Builder{}
	els, err := b.RotationElements(Rotation{
		Fraction:      1,
		Frequencies:   []float64{1e9},
		Amplitudes:    []float64{0},
		RabiPeriods:   []float64{100e-9},
		Envelope:      EnvelopeRectangular,
		KeepSweptIdle: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(els) != 1 {
		t.Fatalf("expected 1 held-open element, got %d", len(els))
	}
	el := els[0]
	if !el.HeldOpen {
		t.Fatalf("expected held-open element, got %+v", el)
	}
	if math.Abs(el.Length-50e-9) > 1e-18 {
		t.Fatalf("held-open element must keep the rotation timing, got %g", el.Length)
	}
	for _, tone := range el.Tones {
		if tone.Amplitude != 0 {
			t.Fatalf("held-open element must carry no power, got %+v", tone)
		}
	}
}

func TestRotationElements_ShapeMismatch(t *testing.T) {
	b := &Builder{}
	_, err := b.RotationElements(Rotation{
		Fraction:    1,
		Frequencies: []float64{1e9},
		Amplitudes:  []float64{0.1, 0.2},
		RabiPeriods: []float64{100e-9, 100e-9},
	})
	if !errors.Is(err, pulse.ErrShapeMismatch) {
		t.Fatalf("expected shape-mismatch error, got %v", err)
	}
}

func TestRotationElements_Rectangular_TargetsWarned(t *testing.T) {
	log, buf := testLog()
	b := &Builder{Log: log}
	_, err := b.RotationElements(Rotation{
		Fraction:    1,
		Frequencies: []float64{1e9},
		Amplitudes:  []float64{0.1},
		RabiPeriods: []float64{100e-9},
		Envelope:    EnvelopeRectangular,
		Targets:     []int{1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "ignored for rectangular") {
		t.Fatalf("expected a warning about ignored targets, got %q", buf.String())
	}
}

func TestRotationElements_Optimal(t *testing.T) {
	src := fakeSource{pulses: []catalog.Pulse{
		{Subsystem: 1, Fraction: 1, InPhasePath: "/a/p1_amplitude.txt", QuadraturePath: "/a/p1_phase.txt", Length: 1e-6},
		{Subsystem: 2, Fraction: 1, InPhasePath: "/a/p2_amplitude.txt", QuadraturePath: "/a/p2_phase.txt", Length: 2e-6},
	}}
	b := &Builder{Source: src}

	els, err := b.RotationElements(Rotation{
		Fraction:    1,
		PhaseDeg:    90,
		Frequencies: []float64{1e9, 2e9},
		Amplitudes:  []float64{0.1, 0.2},
		RabiPeriods: []float64{100e-9, 100e-9},
		Envelope:    EnvelopeOptimal,
		Targets:     []int{1, 2},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(els) != 1 {
		t.Fatalf("expected one shaped element, got %d", len(els))
	}
	el := els[0]
	if len(el.Tones) != 2 {
		t.Fatalf("expected 2 shaped tones, got %d", len(el.Tones))
	}
	for _, tone := range el.Tones {
		if tone.Envelope == nil {
			t.Fatalf("optimal tone must reference an envelope: %+v", tone)
		}
		if tone.PhaseDeg != 90 {
			t.Fatalf("phase must propagate to shaped tones, got %g", tone.PhaseDeg)
		}
	}
	// Element length is the longest declared envelope duration.
	if el.Length != 2e-6 {
		t.Fatalf("element length: got %g want 2e-6", el.Length)
	}
}

func TestRotationElements_Optimal_MissingTargets(t *testing.T) {
	b := &Builder{Source: fakeSource{}}
	_, err := b.RotationElements(Rotation{
		Fraction:    1,
		Frequencies: []float64{1e9},
		Amplitudes:  []float64{0.1},
		RabiPeriods: []float64{100e-9},
		Envelope:    EnvelopeOptimal,
	})
	if !errors.Is(err, pulse.ErrUnsupported) {
		t.Fatalf("expected unsupported-configuration error, got %v", err)
	}
}

func TestRotationElements_Optimal_NoMatch(t *testing.T) {
	b := &Builder{Source: fakeSource{}}
	_, err := b.RotationElements(Rotation{
		Fraction:    1,
		Frequencies: []float64{1e9},
		Amplitudes:  []float64{0.1},
		RabiPeriods: []float64{100e-9},
		Envelope:    EnvelopeOptimal,
		Targets:     []int{1},
	})
	if !errors.Is(err, pulse.ErrAmbiguousLookup) {
		t.Fatalf("expected ambiguous-lookup error, got %v", err)
	}
}

func TestParseEnvelope(t *testing.T) {
	cases := []struct {
		in      string
		want    Envelope
		wantErr bool
	}{
		{"rectangular", EnvelopeRectangular, false},
		{"optimal", EnvelopeOptimal, false},
		{"", EnvelopeRectangular, false},
		{"triangular", "", true},
	}
	for _, tc := range cases {
		got, err := ParseEnvelope(tc.in)
		if tc.wantErr {
			if !errors.Is(err, pulse.ErrUnsupported) {
				t.Fatalf("%q: expected unsupported-configuration error, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %q want %q", tc.in, got, tc.want)
		}
	}
}

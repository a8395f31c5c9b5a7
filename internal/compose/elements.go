package compose

import (
	"pulseweaver/internal/partition"
	"pulseweaver/internal/pulse"
)

// IdleElement returns a drive-free element of the given length.
func IdleElement(length, increment float64) pulse.Element {
	return pulse.Element{Length: length, Increment: increment}
}

// WaitElement returns the post-readout relaxation idle.
func WaitElement(p pulse.Params) pulse.Element {
	return IdleElement(p.WaitTime, 0)
}

// LaserGateElement returns a readout-laser window of the given length.
func LaserGateElement(length, increment float64) pulse.Element {
	return pulse.Element{Length: length, Increment: increment, LaserOn: true}
}

// ReadoutElement returns the standard readout-laser window.
func ReadoutElement(p pulse.Params) pulse.Element {
	return LaserGateElement(p.LaserLength, 0)
}

// DelayGateElement returns the idle covering the laser transit delay.
func DelayGateElement(p pulse.Params) pulse.Element {
	return IdleElement(p.LaserDelay, 0)
}

// TriggerElement returns the hardware synchronization trigger element.
func TriggerElement(p pulse.Params) pulse.Element {
	return pulse.Element{Length: p.TriggerLength, TriggerOn: true}
}

// MultiToneElement builds a microwave element driving every line with
// nonzero amplitude for the same length. Lines with zero amplitude are
// dropped; with equal lengths the partitioner collapses the request into a
// single segment.
func MultiToneElement(phaseDeg, length float64, freqs, amps []float64, increment float64) ([]pulse.Element, error) {
	if len(freqs) != len(amps) {
		return nil, pulse.Errorf(pulse.ErrShapeMismatch,
			"frequency and amplitude arrays differ in length: %d vs %d", len(freqs), len(amps))
	}

	var lengths, increments, a, f, phases []float64
	for i := range amps {
		if amps[i] == 0 {
			continue
		}
		lengths = append(lengths, length)
		increments = append(increments, increment)
		a = append(a, amps[i])
		f = append(f, freqs[i])
		phases = append(phases, phaseDeg)
	}

	segments, err := partition.SplitVectors(lengths, increments, a, f, phases)
	if err != nil {
		return nil, err
	}
	return segmentElements(segments, false), nil
}

// SeparationIdle returns the idle element realizing a fixed pulse
// separation: the requested separation minus the overhead the surrounding
// pulses already spend. A separation smaller than the overhead cannot be
// realized and is rejected rather than clamped.
func SeparationIdle(separation, overhead, increment float64) (pulse.Element, error) {
	length := separation - overhead
	if length < 0 {
		return pulse.Element{}, pulse.Errorf(pulse.ErrImpossibleTiming,
			"separation %g s is shorter than the %g s pulse overhead", separation, overhead)
	}
	return IdleElement(length, increment), nil
}

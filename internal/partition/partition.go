// Package partition converts parallel per-channel drive requests with
// unequal active durations into an ordered, gap-free sequence of
// constant-amplitude segments.
//
// All channels switch on together at t=0. The channel with the shortest
// requested duration switches off first, the remaining channels continue,
// and so on: with pulses ordered by ascending duration, the segments form
// the lower triangle of a channels x segments activity matrix.
package partition

import (
	"math"
	"sort"

	"pulseweaver/internal/pulse"
)

// Channel is one per-channel request: an active duration (plus optional
// per-sweep-step increment) at a constant amplitude, frequency and phase.
type Channel struct {
	Length    float64
	Increment float64
	Amplitude float64
	Frequency float64
	PhaseDeg  float64
}

// Segment is one slice of the composed timeline.
//
// Amplitudes, Frequencies and PhasesDeg carry one slot per requested
// channel, in the original request order; a channel that switched off
// before this segment has amplitude zero. Increment is nonzero on at most
// one segment of a composition (the swept term).
//
// HeldOpen marks a zero-length segment kept only because it carries the
// sweep increment of a channel whose initial duration is zero; it must not
// be discarded downstream.
type Segment struct {
	Length      float64
	Increment   float64
	Amplitudes  []float64
	Frequencies []float64
	PhasesDeg   []float64
	HeldOpen    bool
}

// Split partitions the given channel requests into segments.
//
// Sanitization applied before partitioning:
//   - A channel whose phase is NaN is forced to zero amplitude.
//   - A channel with zero length but nonzero increment yields a held-open
//     zero-length segment instead of being dropped, so the sweep term stays
//     on the timeline.
//
// At most one distinct nonzero increment may appear across all channels;
// divergent sweep increments in one composition are not supported. The
// common increment is attached to the first emitted segment.
func Split(channels []Channel) ([]Segment, error) {
	if len(channels) == 0 {
		return nil, nil
	}

	chs := make([]Channel, len(channels))
	copy(chs, channels)

	increment, err := commonIncrement(chs)
	if err != nil {
		return nil, err
	}

	for i := range chs {
		if math.IsNaN(chs[i].PhaseDeg) {
			chs[i].Amplitude = 0
			chs[i].PhaseDeg = 0
		}
		if chs[i].Length < 0 {
			return nil, pulse.Errorf(pulse.ErrImpossibleTiming,
				"channel %d requests negative duration %g s", i, chs[i].Length)
		}
	}

	// Order channels by requested duration, remembering their identity so
	// each segment's vectors can be restored to the original order.
	order := make([]int, len(chs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return chs[order[a]].Length < chs[order[b]].Length
	})

	freqs := make([]float64, len(chs))
	phases := make([]float64, len(chs))
	for i, ch := range chs {
		freqs[i] = ch.Frequency
		phases[i] = ch.PhaseDeg
	}

	var segments []Segment
	emitted := 0.0
	for step := range order {
		length := chs[order[step]].Length - emitted

		// A channel whose remaining duration is already covered adds no
		// segment — unless it is the held-open sweep carrier.
		heldOpen := length == 0 && chs[order[step]].Length == 0 && chs[order[step]].Increment != 0
		if length <= 0 && !heldOpen {
			continue
		}

		amps := make([]float64, len(chs))
		for pos := step; pos < len(order); pos++ {
			ch := order[pos]
			amps[ch] = chs[ch].Amplitude
		}

		segments = append(segments, Segment{
			Length:      length,
			Amplitudes:  amps,
			Frequencies: append([]float64(nil), freqs...),
			PhasesDeg:   append([]float64(nil), phases...),
			HeldOpen:    heldOpen,
		})
		emitted += length
	}

	if len(segments) > 0 {
		segments[0].Increment = increment
	}
	return segments, nil
}

// SplitVectors is the array-shaped entry point used by the composition
// layer: parallel lengths/increments/amplitudes/frequencies/phases arrays,
// one slot per channel. The arrays must have equal length.
func SplitVectors(lengths, increments, amps, freqs, phasesDeg []float64) ([]Segment, error) {
	n := len(lengths)
	if len(increments) != n || len(amps) != n || len(freqs) != n || len(phasesDeg) != n {
		return nil, pulse.Errorf(pulse.ErrShapeMismatch,
			"channel request arrays differ in length: lengths=%d increments=%d amplitudes=%d frequencies=%d phases=%d",
			len(lengths), len(increments), len(amps), len(freqs), len(phasesDeg))
	}

	chs := make([]Channel, n)
	for i := 0; i < n; i++ {
		chs[i] = Channel{
			Length:    lengths[i],
			Increment: increments[i],
			Amplitude: amps[i],
			Frequency: freqs[i],
			PhaseDeg:  phasesDeg[i],
		}
	}
	return Split(chs)
}

// commonIncrement extracts the single allowed sweep increment.
func commonIncrement(chs []Channel) (float64, error) {
	increment := 0.0
	for i, ch := range chs {
		if ch.Increment == 0 {
			continue
		}
		if increment != 0 && ch.Increment != increment {
			return 0, pulse.Errorf(pulse.ErrUnsupported,
				"divergent duration increments (%g s and %g s at channel %d) in one composition",
				increment, ch.Increment, i)
		}
		increment = ch.Increment
	}
	return increment, nil
}

// ActiveDurations returns, per original channel, the summed duration of
// all segments in which that channel carries nonzero amplitude. For a
// valid partition this reproduces each channel's requested duration.
func ActiveDurations(segments []Segment) []float64 {
	if len(segments) == 0 {
		return nil
	}
	out := make([]float64, len(segments[0].Amplitudes))
	for _, seg := range segments {
		for ch, amp := range seg.Amplitudes {
			if amp != 0 {
				out[ch] += seg.Length
			}
		}
	}
	return out
}

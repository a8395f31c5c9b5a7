// Package paramvec builds the flat per-subsystem drive parameter vectors
// (amplitude, frequency, rabi period) the composition layer indexes by
// physical drive line.
//
// Vector layout, by definition: [p1_sub1, p2_sub1, p1_sub2, p2_sub2, ...] —
// the values of one subsystem stay contiguous, subsystems follow each other
// in logical order.
package paramvec

import (
	"strconv"
	"strings"

	"pulseweaver/internal/pulse"
)

// IsolateOption selects a single subsystem; every other subsystem's slots
// are zeroed, which marks them inactive for the partitioner.
type IsolateOption struct {
	Enabled bool
	Index   int // 0-based subsystem index
}

// Options controls how Build assembles the vector.
type Options struct {
	// Count is the number of subsystems the vector spans. Required when
	// Order or Isolate is used.
	Count int

	// Order remaps physical to logical subsystem positions. It lists the
	// 1-based logical label of each physical chunk in the vector's native
	// order; chunks are re-emitted sorted by label. Empty keeps the native
	// order.
	Order []int

	Isolate IsolateOption
}

// Build concatenates the primary value with the additional per-subsystem
// values into one flat vector and applies reordering and isolation.
//
// A zero primary is omitted, matching the convention that a subsystem
// without its own drive contributes no slot of its own.
func Build(primary float64, extra []float64, opts Options) ([]float64, error) {
	vec := make([]float64, 0, len(extra)+1)
	if primary != 0 {
		vec = append(vec, primary)
	}
	vec = append(vec, extra...)

	if len(opts.Order) > 0 {
		reordered, err := reorder(vec, opts.Count, opts.Order)
		if err != nil {
			return nil, err
		}
		vec = reordered
	}

	if opts.Isolate.Enabled {
		isolated, err := isolate(vec, opts.Count, opts.Isolate.Index)
		if err != nil {
			return nil, err
		}
		vec = isolated
	}

	return vec, nil
}

// reorder splits vec into count equal chunks and re-emits them sorted by
// their label in order.
func reorder(vec []float64, count int, order []int) ([]float64, error) {
	if count <= 0 {
		return nil, pulse.Errorf(pulse.ErrShapeMismatch,
			"reordering requires a positive subsystem count, got %d", count)
	}
	if len(order) != count {
		return nil, pulse.Errorf(pulse.ErrShapeMismatch,
			"order lists %d subsystems, expected %d", len(order), count)
	}
	if len(vec)%count != 0 {
		return nil, pulse.Errorf(pulse.ErrShapeMismatch,
			"vector length %d is not divisible by subsystem count %d", len(vec), count)
	}

	chunk := len(vec) / count
	out := make([]float64, len(vec))
	for physical, label := range order {
		logical := label - 1
		if logical < 0 || logical >= count {
			return nil, pulse.Errorf(pulse.ErrRange,
				"order label %d outside 1..%d", label, count)
		}
		copy(out[logical*chunk:(logical+1)*chunk], vec[physical*chunk:(physical+1)*chunk])
	}
	return out, nil
}

// isolate zeroes every subsystem chunk except the selected one.
func isolate(vec []float64, count, index int) ([]float64, error) {
	if count <= 0 {
		return nil, pulse.Errorf(pulse.ErrShapeMismatch,
			"isolation requires a positive subsystem count, got %d", count)
	}
	if index < 0 || index >= count {
		return nil, pulse.Errorf(pulse.ErrRange,
			"subsystem index %d outside 0..%d", index, count-1)
	}
	if len(vec)%count != 0 {
		return nil, pulse.Errorf(pulse.ErrShapeMismatch,
			"vector length %d is not divisible by subsystem count %d", len(vec), count)
	}

	chunk := len(vec) / count
	out := make([]float64, len(vec))
	copy(out[index*chunk:(index+1)*chunk], vec[index*chunk:(index+1)*chunk])
	return out, nil
}

// ParseList parses a comma-separated list of numbers, the format protocol
// requests use for per-subsystem parameter lists. Blank items are skipped,
// so "0.1,,0.2" and "0.1, 0.2," both parse to two values.
func ParseList(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, pulse.Errorf(pulse.ErrShapeMismatch, "list item %q is not a number", p)
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseIntList parses a comma-separated list of integers, used for
// subsystem orderings and target subsystem sets.
func ParseIntList(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, pulse.Errorf(pulse.ErrShapeMismatch, "list item %q is not an integer", p)
		}
		out = append(out, v)
	}
	return out, nil
}

package cli

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"pulseweaver/internal/paramvec"
	"pulseweaver/internal/pulse"
)

// Request is the YAML description of one timeline to generate: the
// immutable generation parameters, the per-subsystem drive vectors, the
// sweep axis and the ordered composition steps.
//
// Per-subsystem lists use the comma-separated format protocol requests
// have always used; the primary subsystem's own values come from params
// and are prepended automatically.
type Request struct {
	Name   string       `yaml:"name"`
	Params pulse.Params `yaml:"params"`

	// Subsystems is the number of independently addressed subsystems the
	// drive vectors span.
	Subsystems int `yaml:"subsystems"`

	// Order optionally remaps physical to logical subsystem positions,
	// e.g. "2,1". Empty keeps the native order.
	Order string `yaml:"order"`

	ExtraFrequencies string `yaml:"extra_frequencies"`
	ExtraAmplitudes  string `yaml:"extra_amplitudes"`
	ExtraRabiPeriods string `yaml:"extra_rabi_periods"`

	Sweep         SweepSpec `yaml:"sweep"`
	RotatingFrame bool      `yaml:"rotating_frame"`
	Alternating   bool      `yaml:"alternating"`

	// SubSequence suppresses trigger insertion for timelines embedded in a
	// larger protocol.
	SubSequence bool `yaml:"sub_sequence"`

	// Repetitions is the number of extra repetitions of the timeline
	// block in the ensemble.
	Repetitions int `yaml:"repetitions"`

	Steps []Step `yaml:"steps"`
}

// SweepSpec declares a linear sweep axis.
type SweepSpec struct {
	Start  float64 `yaml:"start"`
	Step   float64 `yaml:"step"`
	Points int     `yaml:"points"`
	Unit   string  `yaml:"unit"`
	Label  string  `yaml:"label"`
}

// Values expands the sweep axis into the controlled-variable array.
func (s SweepSpec) Values() []float64 {
	if s.Points <= 0 {
		return nil
	}
	out := make([]float64, s.Points)
	for i := range out {
		out[i] = s.Start + float64(i)*s.Step
	}
	return out
}

// Step is one composition step. Exactly one variant must be set; the set
// of variants is closed and validated before generation starts.
type Step struct {
	Rotation   *RotationStep   `yaml:"rotation,omitempty"`
	Tone       *ToneStep       `yaml:"tone,omitempty"`
	Idle       *IdleStep       `yaml:"idle,omitempty"`
	Laser      *LaserStep      `yaml:"laser,omitempty"`
	Delay      *DelayStep      `yaml:"delay,omitempty"`
	Wait       *WaitStep       `yaml:"wait,omitempty"`
	Separation *SeparationStep `yaml:"separation,omitempty"`
}

// RotationStep requests a rotation pulse on all or one subsystem.
type RotationStep struct {
	Fraction float64 `yaml:"fraction"`
	PhaseDeg float64 `yaml:"phase"`
	Envelope string  `yaml:"envelope"`

	// Isolate restricts the rotation to one 0-based subsystem index.
	Isolate *int `yaml:"isolate"`

	// Targets names the 1-based target subsystems for optimal envelopes,
	// e.g. "1,2".
	Targets string `yaml:"targets"`

	KeepSweptIdle bool `yaml:"keep_swept_idle"`
}

// ToneStep drives every active line for the same length.
type ToneStep struct {
	PhaseDeg  float64 `yaml:"phase"`
	Length    float64 `yaml:"length"`
	Increment float64 `yaml:"increment"`
}

// IdleStep inserts a drive-free element.
type IdleStep struct {
	Length    float64 `yaml:"length"`
	Increment float64 `yaml:"increment"`
}

// LaserStep inserts a readout-laser window. Zero length uses the
// parameter default.
type LaserStep struct {
	Length    float64 `yaml:"length"`
	Increment float64 `yaml:"increment"`
}

// DelayStep inserts the laser transit delay idle.
type DelayStep struct{}

// WaitStep inserts the post-readout relaxation idle.
type WaitStep struct{}

// SeparationStep inserts the idle realizing a fixed pulse separation after
// subtracting the surrounding pulse overhead.
type SeparationStep struct {
	Separation float64 `yaml:"separation"`
	Overhead   float64 `yaml:"overhead"`
	Increment  float64 `yaml:"increment"`
}

// ParseRequest decodes and validates a request document.
func ParseRequest(raw []byte) (Request, error) {
	var req Request
	if err := yaml.Unmarshal(raw, &req); err != nil {
		return Request{}, fmt.Errorf("request is not valid YAML: %w", err)
	}

	if req.Name == "" {
		return Request{}, fmt.Errorf("request needs a name")
	}
	if req.Subsystems <= 0 {
		req.Subsystems = 1
	}
	if len(req.Steps) == 0 {
		return Request{}, fmt.Errorf("request has no steps")
	}
	for i, s := range req.Steps {
		if err := s.validate(); err != nil {
			return Request{}, fmt.Errorf("step %d: %w", i, err)
		}
	}
	return req, nil
}

func (s Step) validate() error {
	set := 0
	for _, present := range []bool{
		s.Rotation != nil, s.Tone != nil, s.Idle != nil,
		s.Laser != nil, s.Delay != nil, s.Wait != nil, s.Separation != nil,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one step kind must be set, got %d", set)
	}
	return nil
}

// vectors builds the request's flat per-line drive vectors.
func (r Request) vectors() (freqs, amps, rabis []float64, err error) {
	order, err := paramvec.ParseIntList(r.Order)
	if err != nil {
		return nil, nil, nil, err
	}
	opts := paramvec.Options{Count: r.Subsystems, Order: order}

	extraFreqs, err := paramvec.ParseList(r.ExtraFrequencies)
	if err != nil {
		return nil, nil, nil, err
	}
	extraAmps, err := paramvec.ParseList(r.ExtraAmplitudes)
	if err != nil {
		return nil, nil, nil, err
	}
	extraRabis, err := paramvec.ParseList(r.ExtraRabiPeriods)
	if err != nil {
		return nil, nil, nil, err
	}

	if freqs, err = paramvec.Build(r.Params.MicrowaveFrequency, extraFreqs, opts); err != nil {
		return nil, nil, nil, err
	}
	if amps, err = paramvec.Build(r.Params.MicrowaveAmplitude, extraAmps, opts); err != nil {
		return nil, nil, nil, err
	}
	if rabis, err = paramvec.Build(r.Params.RabiPeriod, extraRabis, opts); err != nil {
		return nil, nil, nil, err
	}
	return freqs, amps, rabis, nil
}

// isolatedAmps rebuilds the amplitude vector with one subsystem isolated.
func (r Request) isolatedAmps(index int) ([]float64, error) {
	order, err := paramvec.ParseIntList(r.Order)
	if err != nil {
		return nil, err
	}
	extraAmps, err := paramvec.ParseList(r.ExtraAmplitudes)
	if err != nil {
		return nil, err
	}
	return paramvec.Build(r.Params.MicrowaveAmplitude, extraAmps, paramvec.Options{
		Count:   r.Subsystems,
		Order:   order,
		Isolate: paramvec.IsolateOption{Enabled: true, Index: index},
	})
}

package pulse

// Params is the immutable per-call generation parameter set.
//
// It replaces any notion of shared, mutable engine configuration: a nested
// sub-call that needs different drive parameters copies the value and
// passes the copy down, so concurrent generation calls can never observe
// each other's overrides.
//
// All durations are seconds, frequencies Hz, amplitudes hardware units.
type Params struct {
	// RabiPeriod is the primary subsystem's full population-inversion
	// period at MicrowaveAmplitude.
	RabiPeriod float64 `yaml:"rabi_period"`

	// MicrowaveAmplitude and MicrowaveFrequency drive the primary
	// subsystem's main transition.
	MicrowaveAmplitude float64 `yaml:"microwave_amplitude"`
	MicrowaveFrequency float64 `yaml:"microwave_frequency"`

	// LaserLength is the readout-laser gate duration.
	LaserLength float64 `yaml:"laser_length"`

	// LaserDelay covers the transit delay between gating the laser and
	// light arriving at the sample.
	LaserDelay float64 `yaml:"laser_delay"`

	// WaitTime is the relaxation idle after readout.
	WaitTime float64 `yaml:"wait_time"`

	// TriggerLength is the duration of the hardware sync trigger element.
	// Zero disables trigger insertion entirely.
	TriggerLength float64 `yaml:"trigger_length"`
}

// Validate rejects parameter sets no generation call could realize.
func (p Params) Validate() error {
	switch {
	case p.RabiPeriod < 0:
		return Errorf(ErrImpossibleTiming, "rabi period %g s is negative", p.RabiPeriod)
	case p.LaserLength < 0:
		return Errorf(ErrImpossibleTiming, "laser length %g s is negative", p.LaserLength)
	case p.LaserDelay < 0:
		return Errorf(ErrImpossibleTiming, "laser delay %g s is negative", p.LaserDelay)
	case p.WaitTime < 0:
		return Errorf(ErrImpossibleTiming, "wait time %g s is negative", p.WaitTime)
	case p.TriggerLength < 0:
		return Errorf(ErrImpossibleTiming, "trigger length %g s is negative", p.TriggerLength)
	}
	return nil
}

package pulse

// EnvelopeRef points at a pre-computed optimal-control envelope pair on disk.
//
// The in-phase file holds the amplitude samples, the quadrature file the
// phase samples. The hardware compiler resolves the actual waveform; the
// engine only carries the reference.
type EnvelopeRef struct {
	InPhasePath    string  `yaml:"in_phase"`
	QuadraturePath string  `yaml:"quadrature"`
	Scale          float64 `yaml:"scale"`
}

// Tone is one carrier on one physical drive line.
//
// A nil Envelope means a constant (rectangular) amplitude for the whole
// element. A non-nil Envelope means the amplitude/phase samples come from
// the referenced file pair and Amplitude acts as an overall scale.
type Tone struct {
	Amplitude float64      `yaml:"amplitude"`
	Frequency float64      `yaml:"frequency"`
	PhaseDeg  float64      `yaml:"phase_deg"`
	Envelope  *EnvelopeRef `yaml:"envelope,omitempty"`
}

// Element is the atomic timeline primitive: a constant-parameter slice of
// the pulse timeline.
//
// Length is the duration in seconds at sweep step 0; Increment is added
// once per sweep step. Tones holds one entry per active physical drive
// line; an element with no tones is idle.
//
// HeldOpen marks an element that exists only to keep a swept duration on
// the timeline while carrying no drive power. Downstream compilers must
// not discard it even when its initial length is zero.
type Element struct {
	Length    float64 `yaml:"length"`
	Increment float64 `yaml:"increment"`
	Tones     []Tone  `yaml:"tones,omitempty"`
	LaserOn   bool    `yaml:"laser_on,omitempty"`
	TriggerOn bool    `yaml:"trigger_on,omitempty"`
	HeldOpen  bool    `yaml:"held_open,omitempty"`
}

// LengthAt returns the element duration at the given sweep step.
func (e Element) LengthAt(step int) float64 {
	return e.Length + float64(step)*e.Increment
}

// ValidateSteps checks that the element duration stays non-negative for
// every sweep step in [0, steps).
func (e Element) ValidateSteps(steps int) error {
	if steps < 1 {
		steps = 1
	}
	if e.Length < 0 {
		return Errorf(ErrImpossibleTiming, "element length %g s is negative", e.Length)
	}
	if last := e.LengthAt(steps - 1); last < 0 {
		return Errorf(ErrImpossibleTiming,
			"element length %g s becomes negative (%g s) at sweep step %d",
			e.Length, last, steps-1)
	}
	return nil
}

// ElementsLength sums the initial lengths of the given elements.
//
// It refuses element lists with a net nonzero increment: such a list has
// no unique length, only a per-step one (use ElementsLengthMax).
func ElementsLength(els []Element) (float64, error) {
	var total, incr float64
	for _, el := range els {
		total += el.Length
		incr += el.Increment
	}
	if incr != 0 {
		return 0, Errorf(ErrUnsupported,
			"element list has net increment %g s, length is not unique", incr)
	}
	return total, nil
}

// ElementsLengthMax returns the total duration of the given elements at the
// last of the given number of sweep steps, i.e. the longest realization.
func ElementsLengthMax(els []Element, steps int) float64 {
	if steps < 1 {
		steps = 1
	}
	var total, incr float64
	for _, el := range els {
		total += el.Length
		incr += el.Increment
	}
	return total + float64(steps-1)*incr
}

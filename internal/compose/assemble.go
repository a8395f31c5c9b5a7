package compose

import (
	"log/slog"

	"github.com/google/uuid"

	"pulseweaver/internal/pulse"
)

// Sweep describes the independent variable one ensemble scans: the value
// of the controlled variable at each sweep step, plus axis metadata for
// acquisition.
type Sweep struct {
	Values []float64
	Unit   string
	Label  string
}

// Steps returns the number of sweep steps, at least 1.
func (s Sweep) Steps() int {
	if len(s.Values) == 0 {
		return 1
	}
	return len(s.Values)
}

// EnsembleSpec describes how accumulated blocks wrap into one ensemble.
type EnsembleSpec struct {
	Name          string
	RotatingFrame bool

	// Entries is the playback order: block name plus extra repetitions.
	Entries []pulse.BlockRef

	Sweep Sweep

	// Alternating marks a duplicated reference arm inside the blocks,
	// recorded for acquisition; the readout accounting below counts the
	// extra gates from the block content itself.
	Alternating bool

	// SubSequence suppresses the sync trigger: set when the composition is
	// embedded inside a larger protocol that triggers on its own.
	SubSequence bool

	// IgnoredGates lists readout-gate indices acquisition should discard.
	IgnoredGates []int
}

// Result is the hand-off artifact of one generation call. Its blocks are
// sealed.
type Result struct {
	Blocks   []*pulse.Block
	Ensemble *pulse.BlockEnsemble
}

// Assembler accumulates the blocks of one generation call and wraps them
// into an ensemble. One assembler serves exactly one call; it is not
// shared.
type Assembler struct {
	params pulse.Params
	log    *slog.Logger
	blocks []*pulse.Block
}

// NewAssembler validates the per-call parameters and returns an empty
// assembler.
func NewAssembler(params pulse.Params, log *slog.Logger) (*Assembler, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Assembler{params: params, log: log}, nil
}

// Params returns the immutable per-call parameter set.
func (a *Assembler) Params() pulse.Params { return a.params }

// NewBlock registers and returns an empty block. Block names address
// ensemble entries, so they must be unique within a call.
func (a *Assembler) NewBlock(name string) (*pulse.Block, error) {
	if a.find(name) != nil {
		return nil, pulse.Errorf(pulse.ErrUnsupported, "duplicate block name %q", name)
	}
	b := pulse.NewBlock(name)
	a.blocks = append(a.blocks, b)
	return b, nil
}

func (a *Assembler) find(name string) *pulse.Block {
	for _, b := range a.blocks {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Finish wraps the accumulated blocks into an ensemble, computes the
// measurement record, seals every block and returns the hand-off result.
//
// The sync trigger, when enabled by the parameters and not suppressed for
// a sub-sequence, is appended exactly once to the playback order — never
// once per repetition.
func (a *Assembler) Finish(spec EnsembleSpec) (Result, error) {
	if spec.Name == "" {
		return Result{}, pulse.Errorf(pulse.ErrUnsupported, "ensemble needs a name")
	}

	steps := spec.Sweep.Steps()

	ensemble := &pulse.BlockEnsemble{
		ID:            uuid.NewString(),
		Name:          spec.Name,
		RotatingFrame: spec.RotatingFrame,
	}

	readoutGates := 0
	countingLength := 0.0
	for _, ref := range spec.Entries {
		block := a.find(ref.Name)
		if block == nil {
			return Result{}, pulse.Errorf(pulse.ErrUnsupported,
				"ensemble references unknown block %q", ref.Name)
		}
		if ref.Repetitions < 0 {
			return Result{}, pulse.Errorf(pulse.ErrUnsupported,
				"block %q has negative repetition count %d", ref.Name, ref.Repetitions)
		}

		for i, el := range block.Elements {
			if err := el.ValidateSteps(steps); err != nil {
				return Result{}, pulse.Errorf(pulse.ErrImpossibleTiming,
					"block %q element %d: %v", ref.Name, i, err)
			}
		}

		plays := ref.Repetitions + 1
		readoutGates += plays * block.LaserGateCount()
		for _, el := range block.Elements {
			if el.LaserOn {
				countingLength += float64(plays) * el.LengthAt(steps-1)
			}
		}

		ensemble.Append(ref)
	}

	if !spec.SubSequence && a.params.TriggerLength > 0 {
		trigger, err := a.NewBlock(spec.Name + "_sync_trigger")
		if err != nil {
			return Result{}, err
		}
		trigger.Append(TriggerElement(a.params))
		ensemble.Append(pulse.BlockRef{Name: trigger.Name})
	}

	ensemble.Measurement = &pulse.MeasurementInfo{
		Alternating:        spec.Alternating,
		ControlledVariable: append([]float64(nil), spec.Sweep.Values...),
		Units:              [2]string{spec.Sweep.Unit, ""},
		Labels:             [2]string{spec.Sweep.Label, "Signal"},
		ReadoutGates:       readoutGates,
		CountingLength:     countingLength,
		IgnoredGates:       append([]int(nil), spec.IgnoredGates...),
	}

	for _, b := range a.blocks {
		b.Seal()
	}
	return Result{Blocks: a.blocks, Ensemble: ensemble}, nil
}

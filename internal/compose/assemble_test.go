package compose

import (
	"errors"
	"math"
	"testing"

	"pulseweaver/internal/pulse"
)

func testParams() pulse.Params {
	return pulse.Params{
		RabiPeriod:         100e-9,
		MicrowaveAmplitude: 0.25,
		MicrowaveFrequency: 2.87e9,
		LaserLength:        3e-6,
		LaserDelay:         700e-9,
		WaitTime:           1e-6,
		TriggerLength:      20e-9,
	}
}

func TestAssembler_Finish_AppendsTriggerOnce(t *testing.T) {
	asm, err := NewAssembler(testParams(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	block, err := asm.NewBlock("rabi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	block.Append(IdleElement(10e-9, 10e-9)).
		Append(ReadoutElement(asm.Params())).
		Append(DelayGateElement(asm.Params())).
		Append(WaitElement(asm.Params()))

	result, err := asm.Finish(EnsembleSpec{
		Name:    "rabi",
		Entries: []pulse.BlockRef{{Name: "rabi", Repetitions: 49}},
		Sweep:   Sweep{Values: sweep(10e-9, 10e-9, 50), Unit: "s", Label: "Tau"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Playback order: the measurement block, then exactly one trigger
	// block regardless of repetition count.
	if len(result.Ensemble.Blocks) != 2 {
		t.Fatalf("expected 2 ensemble entries, got %v", result.Ensemble.Blocks)
	}
	trigger := result.Ensemble.Blocks[1]
	if trigger.Name != "rabi_sync_trigger" || trigger.Repetitions != 0 {
		t.Fatalf("trigger entry: got %+v", trigger)
	}

	var triggerBlock *pulse.Block
	for _, b := range result.Blocks {
		if b.Name == "rabi_sync_trigger" {
			triggerBlock = b
		}
	}
	if triggerBlock == nil || len(triggerBlock.Elements) != 1 || !triggerBlock.Elements[0].TriggerOn {
		t.Fatalf("trigger block missing or malformed: %+v", triggerBlock)
	}

	if result.Ensemble.ID == "" {
		t.Fatalf("ensemble must carry a run ID")
	}
}

func TestAssembler_Finish_SubSequenceSuppressesTrigger(t *testing.T) {
	asm, err := NewAssembler(testParams(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	block, err := asm.NewBlock("cnot")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	block.Append(IdleElement(10e-9, 0))

	result, err := asm.Finish(EnsembleSpec{
		Name:        "cnot",
		Entries:     []pulse.BlockRef{{Name: "cnot"}},
		SubSequence: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Ensemble.Blocks) != 1 {
		t.Fatalf("sub-sequence must not get a trigger: %v", result.Ensemble.Blocks)
	}
	for _, b := range result.Blocks {
		if b.Name == "cnot_sync_trigger" {
			t.Fatalf("sub-sequence must not create a trigger block")
		}
	}
}

func TestAssembler_Finish_ReadoutAccounting(t *testing.T) {
	asm, err := NewAssembler(testParams(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	block, err := asm.NewBlock("alt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Alternating measurement: two readout windows per pass.
	block.Append(IdleElement(10e-9, 10e-9)).
		Append(ReadoutElement(asm.Params())).
		Append(IdleElement(10e-9, 10e-9)).
		Append(ReadoutElement(asm.Params()))

	points := 50
	result, err := asm.Finish(EnsembleSpec{
		Name:        "alt",
		Entries:     []pulse.BlockRef{{Name: "alt", Repetitions: points - 1}},
		Sweep:       Sweep{Values: sweep(10e-9, 10e-9, points), Unit: "s", Label: "Tau"},
		Alternating: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mi := result.Ensemble.Measurement
	if mi == nil {
		t.Fatalf("measurement record missing")
	}
	if !mi.Alternating {
		t.Fatalf("alternating flag must propagate")
	}
	if mi.ReadoutGates != 2*points {
		t.Fatalf("readout gates: got %d want %d", mi.ReadoutGates, 2*points)
	}
	wantCounting := float64(2*points) * 3e-6
	if math.Abs(mi.CountingLength-wantCounting) > 1e-15 {
		t.Fatalf("counting length: got %g want %g", mi.CountingLength, wantCounting)
	}
	if len(mi.ControlledVariable) != points {
		t.Fatalf("controlled variable: got %d values", len(mi.ControlledVariable))
	}
	if mi.Units != [2]string{"s", ""} || mi.Labels != [2]string{"Tau", "Signal"} {
		t.Fatalf("axis metadata: got units=%v labels=%v", mi.Units, mi.Labels)
	}
}

func TestAssembler_Finish_NegativeSweptDuration_Rejected(t *testing.T) {
	asm, err := NewAssembler(testParams(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	block, err := asm.NewBlock("bad")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Shrinks by 10 ns per step from 50 ns: negative from step 6 on.
	block.Append(IdleElement(50e-9, -10e-9))

	_, err = asm.Finish(EnsembleSpec{
		Name:    "bad",
		Entries: []pulse.BlockRef{{Name: "bad"}},
		Sweep:   Sweep{Values: sweep(0, 1, 10)},
	})
	if !errors.Is(err, pulse.ErrImpossibleTiming) {
		t.Fatalf("expected impossible-timing error, got %v", err)
	}
}

func TestAssembler_Finish_UnknownBlock_Rejected(t *testing.T) {
	asm, err := NewAssembler(testParams(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = asm.Finish(EnsembleSpec{
		Name:    "x",
		Entries: []pulse.BlockRef{{Name: "ghost"}},
	})
	if !errors.Is(err, pulse.ErrUnsupported) {
		t.Fatalf("expected unsupported-configuration error, got %v", err)
	}
}

func TestAssembler_DuplicateBlockName_Rejected(t *testing.T) {
	asm, err := NewAssembler(testParams(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := asm.NewBlock("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := asm.NewBlock("a"); !errors.Is(err, pulse.ErrUnsupported) {
		t.Fatalf("expected duplicate-name rejection, got %v", err)
	}
}

func TestAssembler_Finish_SealsBlocks(t *testing.T) {
	asm, err := NewAssembler(testParams(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	block, err := asm.NewBlock("seal")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	block.Append(IdleElement(10e-9, 0))

	if _, err := asm.Finish(EnsembleSpec{
		Name:    "seal",
		Entries: []pulse.BlockRef{{Name: "seal"}},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !block.Sealed() {
		t.Fatalf("blocks must be sealed after Finish")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("append to a sealed block must panic")
		}
	}()
	block.Append(IdleElement(1e-9, 0))
}

func TestSeparationIdle(t *testing.T) {
	el, err := SeparationIdle(500e-9, 50e-9, 10e-9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(el.Length-450e-9) > 1e-18 || el.Increment != 10e-9 {
		t.Fatalf("separation idle: got %+v", el)
	}

	// A separation smaller than the pulse overhead cannot be realized.
	_, err = SeparationIdle(40e-9, 50e-9, 0)
	if !errors.Is(err, pulse.ErrImpossibleTiming) {
		t.Fatalf("expected impossible-timing error, got %v", err)
	}
}

func TestMultiToneElement(t *testing.T) {
	els, err := MultiToneElement(45, 200e-9, []float64{1e9, 2e9, 3e9}, []float64{0.1, 0, 0.3}, 5e-9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(els) != 1 {
		t.Fatalf("equal lengths must collapse to one element, got %d", len(els))
	}
	el := els[0]
	if el.Length != 200e-9 || el.Increment != 5e-9 {
		t.Fatalf("timing: got %+v", el)
	}
	if len(el.Tones) != 2 {
		t.Fatalf("zero-amplitude line must be dropped, got %d tones", len(el.Tones))
	}
	for _, tone := range el.Tones {
		if tone.PhaseDeg != 45 {
			t.Fatalf("phase must apply to every line, got %+v", tone)
		}
	}

	if _, err := MultiToneElement(0, 1e-9, []float64{1e9}, []float64{0.1, 0.2}, 0); !errors.Is(err, pulse.ErrShapeMismatch) {
		t.Fatalf("expected shape-mismatch error, got %v", err)
	}
}

func TestNewAssembler_InvalidParams(t *testing.T) {
	p := testParams()
	p.LaserLength = -1
	if _, err := NewAssembler(p, nil); !errors.Is(err, pulse.ErrImpossibleTiming) {
		t.Fatalf("expected impossible-timing error, got %v", err)
	}
}

// sweep expands a linear sweep axis for tests.
func sweep(start, step float64, points int) []float64 {
	out := make([]float64, points)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

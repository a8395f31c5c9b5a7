package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"pulseweaver/internal/catalog"
	"pulseweaver/internal/compose"
	"pulseweaver/internal/paramvec"
	"pulseweaver/internal/pulse"
)

// CLIResult carries the semantic exit code and the rendered document.
type CLIResult struct {
	ExitCode int
	Output   string
}

func configErrorf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitConfigError, Message: fmt.Sprintf(format, args...)}
}

// Execute runs a canonical invocation: it loads the catalog (when
// configured), generates or inspects, renders YAML, and writes the output
// file when one was requested.
//
// Generation is a finite, synchronous computation; any failure is a
// validation error mapped to ExitGenerationFailure.
func Execute(inv CLIInvocation, log *slog.Logger) (CLIResult, error) {
	if log == nil {
		log = slog.Default()
	}

	var cat *catalog.Catalog
	if inv.CatalogDir != "" {
		var err error
		cat, err = catalog.Load(catalog.Config{Dir: inv.CatalogDir, Log: log})
		if err != nil {
			return CLIResult{ExitCode: ExitConfigError},
				configErrorf("cannot load catalog %s: %v", inv.CatalogDir, err)
		}
	}

	var doc any
	switch inv.Mode {
	case ModeCatalog:
		doc = catalogView{Dir: cat.Dir(), Pulses: cat.Pulses()}

	case ModePlan:
		raw, err := os.ReadFile(inv.RequestPath)
		if err != nil {
			return CLIResult{ExitCode: ExitConfigError},
				configErrorf("cannot read request %s: %v", inv.RequestPath, err)
		}
		req, err := ParseRequest(raw)
		if err != nil {
			return CLIResult{ExitCode: ExitConfigError},
				configErrorf("invalid request %s: %v", inv.RequestPath, err)
		}

		result, err := Generate(req, cat, log)
		if err != nil {
			return CLIResult{ExitCode: ExitGenerationFailure}, err
		}
		doc = planView{
			Request:  req.Name,
			Ensemble: result.Ensemble,
			Blocks:   result.Blocks,
		}

	default:
		return CLIResult{ExitCode: ExitInternalError},
			fmt.Errorf("unhandled mode %q", inv.Mode)
	}

	rendered, err := yaml.Marshal(doc)
	if err != nil {
		return CLIResult{ExitCode: ExitInternalError}, err
	}

	if inv.OutputPath != "" {
		if err := os.WriteFile(inv.OutputPath, rendered, 0o644); err != nil {
			return CLIResult{ExitCode: ExitConfigError},
				configErrorf("cannot write output %s: %v", inv.OutputPath, err)
		}
	}

	return CLIResult{ExitCode: ExitSuccess, Output: string(rendered)}, nil
}

type catalogView struct {
	Dir    string          `yaml:"dir"`
	Pulses []catalog.Pulse `yaml:"pulses"`
}

type planView struct {
	Request  string               `yaml:"request"`
	Ensemble *pulse.BlockEnsemble `yaml:"ensemble"`
	Blocks   []*pulse.Block       `yaml:"blocks"`
}

// Generate builds the timeline a request describes: one block holding the
// steps in order, wrapped into an ensemble carrying the sweep metadata.
func Generate(req Request, cat *catalog.Catalog, log *slog.Logger) (compose.Result, error) {
	asm, err := compose.NewAssembler(req.Params, log)
	if err != nil {
		return compose.Result{}, err
	}

	builder := &compose.Builder{Log: log}
	if cat != nil {
		builder.Source = cat
	}

	freqs, amps, rabis, err := req.vectors()
	if err != nil {
		return compose.Result{}, err
	}

	block, err := asm.NewBlock(req.Name)
	if err != nil {
		return compose.Result{}, err
	}

	for i, step := range req.Steps {
		els, err := stepElements(req, step, builder, freqs, amps, rabis)
		if err != nil {
			return compose.Result{}, fmt.Errorf("step %d: %w", i, err)
		}
		block.Extend(els)
	}

	return asm.Finish(compose.EnsembleSpec{
		Name:          req.Name,
		RotatingFrame: req.RotatingFrame,
		Entries:       []pulse.BlockRef{{Name: req.Name, Repetitions: req.Repetitions}},
		Sweep: compose.Sweep{
			Values: req.Sweep.Values(),
			Unit:   req.Sweep.Unit,
			Label:  req.Sweep.Label,
		},
		Alternating: req.Alternating,
		SubSequence: req.SubSequence,
	})
}

func stepElements(req Request, step Step, builder *compose.Builder, freqs, amps, rabis []float64) ([]pulse.Element, error) {
	p := req.Params

	switch {
	case step.Rotation != nil:
		rot := step.Rotation
		env, err := compose.ParseEnvelope(rot.Envelope)
		if err != nil {
			return nil, err
		}
		stepAmps := amps
		if rot.Isolate != nil {
			if stepAmps, err = req.isolatedAmps(*rot.Isolate); err != nil {
				return nil, err
			}
		}
		targets, err := paramvec.ParseIntList(rot.Targets)
		if err != nil {
			return nil, err
		}
		return builder.RotationElements(compose.Rotation{
			Fraction:      rot.Fraction,
			PhaseDeg:      rot.PhaseDeg,
			Frequencies:   freqs,
			Amplitudes:    stepAmps,
			RabiPeriods:   rabis,
			Envelope:      env,
			Targets:       targets,
			KeepSweptIdle: rot.KeepSweptIdle,
		})

	case step.Tone != nil:
		return compose.MultiToneElement(step.Tone.PhaseDeg, step.Tone.Length, freqs, amps, step.Tone.Increment)

	case step.Idle != nil:
		return []pulse.Element{compose.IdleElement(step.Idle.Length, step.Idle.Increment)}, nil

	case step.Laser != nil:
		length := step.Laser.Length
		if length == 0 {
			length = p.LaserLength
		}
		return []pulse.Element{compose.LaserGateElement(length, step.Laser.Increment)}, nil

	case step.Delay != nil:
		return []pulse.Element{compose.DelayGateElement(p)}, nil

	case step.Wait != nil:
		return []pulse.Element{compose.WaitElement(p)}, nil

	case step.Separation != nil:
		el, err := compose.SeparationIdle(step.Separation.Separation, step.Separation.Overhead, step.Separation.Increment)
		if err != nil {
			return nil, err
		}
		return []pulse.Element{el}, nil
	}

	// Unreachable after Step.validate.
	return nil, errors.New("empty step")
}

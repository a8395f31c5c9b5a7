package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// descriptor is the sidecar file recorded alongside an envelope pair. It
// is the preferred way to declare pulse parameters; filename-encoded
// tokens remain supported for assets produced by older tooling.
type descriptor struct {
	InPhase    string  `yaml:"in_phase"`
	Quadrature string  `yaml:"quadrature"`
	Subsystem  int     `yaml:"subsystem"`
	Fraction   float64 `yaml:"fraction"`
	Length     float64 `yaml:"length"`
}

// loadDescriptor parses a sidecar descriptor and resolves its file
// references against the asset directory. It returns the described pulse
// and the envelope file paths the descriptor claims.
func loadDescriptor(cfg Config, path string) (Pulse, []string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Pulse{}, nil, err
	}

	var d descriptor
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Pulse{}, nil, err
	}
	if d.InPhase == "" || d.Quadrature == "" {
		return Pulse{}, nil, fmt.Errorf("descriptor must name in_phase and quadrature files")
	}
	if d.Subsystem <= 0 {
		return Pulse{}, nil, fmt.Errorf("descriptor must declare a positive subsystem, got %d", d.Subsystem)
	}
	if d.Fraction <= 0 {
		return Pulse{}, nil, fmt.Errorf("descriptor must declare a positive fraction, got %g", d.Fraction)
	}

	iPath := filepath.Join(cfg.Dir, filepath.Base(d.InPhase))
	qPath := filepath.Join(cfg.Dir, filepath.Base(d.Quadrature))
	for _, p := range []string{iPath, qPath} {
		if _, err := os.Stat(p); err != nil {
			return Pulse{}, nil, fmt.Errorf("referenced envelope file missing: %w", err)
		}
	}

	p := Pulse{
		Subsystem:      d.Subsystem,
		Fraction:       d.Fraction,
		InPhasePath:    iPath,
		QuadraturePath: qPath,
		Length:         d.Length,
	}
	return p, []string{iPath, qPath}, nil
}

// Filename token keys understood by paramsFromName. "pix" encodes the
// rotation fraction in units of pi, "on_nv" the 1-based target subsystem.
const (
	tokenFraction  = "pix"
	tokenSubsystem = "on_nv"
)

// paramsFromName extracts the target parameters from key=value tokens
// embedded in an envelope file name, e.g. "oc_on_nv=2_pix=0.5_amplitude.txt".
//
// A file that encodes neither parameter defaults to a full rotation on
// subsystem 1. The defaulting is kept for compatibility with unannotated
// asset directories but logged, since it can mask operator mistakes.
func paramsFromName(cfg Config, name string) (subsystem int, fraction float64) {
	subsystem, fraction = 1, 1
	found := false

	name = strings.TrimSuffix(name, filepath.Ext(name))
	if value, ok := tokenValue(name, tokenFraction); ok {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			fraction = v
			found = true
		}
	}
	if value, ok := tokenValue(name, tokenSubsystem); ok {
		if v, err := strconv.Atoi(value); err == nil {
			subsystem = v
			found = true
		}
	}

	if !found {
		cfg.Log.Warn("envelope file encodes no target parameters, defaulting",
			"file", name, "subsystem", subsystem, "fraction", fraction)
	}
	return subsystem, fraction
}

// tokenValue extracts the value of an embedded key=value token. Tokens end
// at the next "_" or "-" separator.
func tokenValue(name, key string) (string, bool) {
	i := strings.Index(name, key+"=")
	if i < 0 {
		return "", false
	}
	rest := name[i+len(key)+1:]
	if end := strings.IndexAny(rest, "_-"); end >= 0 {
		rest = rest[:end]
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}

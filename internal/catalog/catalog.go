// Package catalog discovers and indexes pre-computed optimal-control pulse
// envelopes from an asset directory.
//
// An envelope is stored as a file pair: an in-phase member holding the
// amplitude samples and a quadrature member holding the phase samples.
// Pulses are identified by their target unitary — (target subsystem,
// rotation fraction) — and the catalog keeps at most one pulse per target.
//
// The catalog is built once at engine initialization and is read-only
// afterwards; hot reloading means building a fresh catalog and swapping it
// in whole.
package catalog

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pulseweaver/internal/pulse"
)

// Pulse describes one registered optimal-control pulse.
type Pulse struct {
	// Subsystem is the 1-based target subsystem label.
	Subsystem int `yaml:"subsystem"`

	// Fraction is the rotation fraction in units of a full (pi) rotation.
	Fraction float64 `yaml:"fraction"`

	// InPhasePath and QuadraturePath reference the envelope sample files.
	InPhasePath    string `yaml:"in_phase"`
	QuadraturePath string `yaml:"quadrature"`

	// Length is the pulse duration in seconds, when the descriptor declares
	// it. Zero means unknown; the hardware compiler then derives it from
	// the sample count.
	Length float64 `yaml:"length,omitempty"`
}

// SameTarget reports whether two pulses implement the same unitary.
// Equality of pulses is defined by target only, never by file identity.
func (p Pulse) SameTarget(o Pulse) bool {
	return p.Subsystem == o.Subsystem && p.Fraction == o.Fraction
}

// BasePath returns the common path prefix of the pulse's file pair,
// useful as a compact display name.
func (p Pulse) BasePath() string {
	a, b := p.InPhasePath, p.QuadraturePath
	max := len(a)
	if len(b) < max {
		max = len(b)
	}
	i := 0
	for i < max && a[i] == b[i] {
		i++
	}
	return a[:i]
}

// Config controls catalog construction.
type Config struct {
	// Dir is the flat asset directory to scan.
	Dir string

	// InPhaseMarker and QuadratureMarker are the filename tokens that
	// identify the two members of an envelope pair. They default to
	// "amplitude" and "phase".
	InPhaseMarker    string
	QuadratureMarker string

	// Log receives non-fatal warnings (unpaired files, duplicate targets,
	// defaulted parameters). Defaults to slog.Default().
	Log *slog.Logger
}

// Catalog is the immutable pulse index.
type Catalog struct {
	dir    string
	pulses []Pulse
}

// Load scans the asset directory and builds the catalog.
//
// Registration order: sidecar descriptors first, then marker-paired files.
// Within each group files register in lexical order, and the first pulse
// registered for a target wins; later duplicates are skipped with a
// warning.
func Load(cfg Config) (*Catalog, error) {
	if cfg.InPhaseMarker == "" {
		cfg.InPhaseMarker = "amplitude"
	}
	if cfg.QuadratureMarker == "" {
		cfg.QuadratureMarker = "phase"
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	entries, err := os.ReadDir(cfg.Dir)
	if err != nil {
		return nil, err
	}

	var files []string
	var descriptors []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(cfg.Dir, e.Name())
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			descriptors = append(descriptors, path)
		default:
			files = append(files, path)
		}
	}
	sort.Strings(files)
	sort.Strings(descriptors)

	c := &Catalog{dir: cfg.Dir}

	claimed := map[string]bool{}
	for _, path := range descriptors {
		p, refs, err := loadDescriptor(cfg, path)
		if err != nil {
			cfg.Log.Warn("skipping unreadable pulse descriptor", "file", path, "err", err)
			continue
		}
		for _, r := range refs {
			claimed[r] = true
		}
		c.register(cfg, p, path)
	}

	for _, path := range files {
		if claimed[path] {
			continue
		}
		base := filepath.Base(path)
		if !strings.Contains(base, cfg.InPhaseMarker) {
			continue
		}

		partners := findQuadrature(cfg, path, files, claimed)
		if len(partners) != 1 {
			cfg.Log.Warn("in-phase envelope file has no unique quadrature partner",
				"file", path, "candidates", partners)
			continue
		}

		p := Pulse{InPhasePath: path, QuadraturePath: partners[0]}
		p.Subsystem, p.Fraction = paramsFromName(cfg, base)
		c.register(cfg, p, path)
	}

	return c, nil
}

// register appends the pulse unless its target is already taken.
func (c *Catalog) register(cfg Config, p Pulse, source string) {
	for _, have := range c.pulses {
		if have.SameTarget(p) {
			cfg.Log.Warn("skipping duplicate optimal-control pulse",
				"file", source,
				"existing", have.InPhasePath,
				"subsystem", p.Subsystem,
				"fraction", p.Fraction)
			return
		}
	}
	c.pulses = append(c.pulses, p)
}

// findQuadrature locates the quadrature partner of an in-phase file by
// progressively narrowing the directory listing:
//
//  1. keep files under the asset directory,
//  2. keep files containing the in-phase basename with the marker removed,
//  3. only if that basename is the bare marker (step 2 would keep
//     everything), additionally require the quadrature marker plus the
//     in-phase file's extension.
//
// The in-phase file itself is never a candidate.
func findQuadrature(cfg Config, inPhase string, files []string, claimed map[string]bool) []string {
	base := filepath.Base(inPhase)
	ext := filepath.Ext(base)
	noExt := strings.TrimSuffix(base, ext)
	stripped := strings.TrimSuffix(strings.ReplaceAll(base, cfg.InPhaseMarker, ""), ext)

	filters := []string{cfg.Dir, stripped}
	if noExt == cfg.InPhaseMarker {
		filters = append(filters, cfg.QuadratureMarker+ext)
	}

	var out []string
	for _, f := range files {
		if f == inPhase || claimed[f] {
			continue
		}
		ok := true
		for _, filter := range filters {
			if !strings.Contains(f, filter) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, f)
		}
	}
	return out
}

// Find returns every pulse matching the target exactly.
func (c *Catalog) Find(subsystem int, fraction float64) []Pulse {
	want := Pulse{Subsystem: subsystem, Fraction: fraction}
	var out []Pulse
	for _, p := range c.pulses {
		if p.SameTarget(want) {
			out = append(out, p)
		}
	}
	return out
}

// FindOne returns the single pulse for the target, or a validation error
// when the lookup is ambiguous or empty.
func (c *Catalog) FindOne(subsystem int, fraction float64) (Pulse, error) {
	matches := c.Find(subsystem, fraction)
	if len(matches) != 1 {
		return Pulse{}, pulse.Errorf(pulse.ErrAmbiguousLookup,
			"%d optimal-control pulses for subsystem %d, fraction %g in %s",
			len(matches), subsystem, fraction, c.dir)
	}
	return matches[0], nil
}

// Pulses returns a copy of the registered pulses.
func (c *Catalog) Pulses() []Pulse {
	return append([]Pulse(nil), c.pulses...)
}

// Len returns the number of registered pulses.
func (c *Catalog) Len() int { return len(c.pulses) }

// Dir returns the scanned asset directory.
func (c *Catalog) Dir() string { return c.dir }

package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

const (
	ExitSuccess           = 0
	ExitGenerationFailure = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

// Mode selects what the invocation produces.
type Mode string

const (
	// ModeCatalog scans the optimal-control asset directory and renders
	// the resulting pulse index.
	ModeCatalog Mode = "catalog"

	// ModePlan generates the timeline described by a request file and
	// renders the resulting blocks and ensemble.
	ModePlan Mode = "plan"
)

// CLIInvocation is the fully canonicalized, deterministic description of a
// run.
//
// All paths are normalized (Clean) and all relative paths are resolved
// relative to WorkDir.
//
// NOTE: WorkDir is required and must be absolute; this prevents any
// dependency on the process current working directory.
type CLIInvocation struct {
	WorkDir     string
	Mode        Mode
	CatalogDir  string
	RequestPath string
	OutputPath  string

	OriginalCatalog string
	OriginalRequest string
	OriginalOutput  string
}

type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// ParseInvocation parses CLI flags into a canonical CLIInvocation.
//
// Determinism goals:
//   - Does not read env vars.
//   - Does not read/assume the process CWD.
//   - Requires WorkDir to be explicit and absolute.
func ParseInvocation(args []string) (CLIInvocation, error) {
	fs := flag.NewFlagSet("pulseweaver", flag.ContinueOnError)
	fs.SetOutput(io.Discard) // parsing errors are returned, not printed

	var workDir string
	var mode string
	var catalogDir string
	var requestPath string
	var outputPath string

	fs.StringVar(&workDir, "workdir", "", "Absolute working directory. Required.")
	fs.StringVar(&mode, "mode", string(ModePlan), "Run mode: catalog|plan")
	fs.StringVar(&catalogDir, "catalog", "", "Optimal-control asset directory (optional for plan mode).")
	fs.StringVar(&requestPath, "request", "", "Timeline request file. Required for plan mode.")
	fs.StringVar(&outputPath, "out", "", "Output file (optional; defaults to stdout).")

	// We intentionally do not accept environment-derived defaults.
	if err := fs.Parse(args); err != nil {
		return CLIInvocation{}, invalidInvocationf("%v", err)
	}
	if fs.NArg() != 0 {
		return CLIInvocation{}, invalidInvocationf("unexpected positional arguments: %q", strings.Join(fs.Args(), " "))
	}

	workDir = filepath.Clean(workDir)
	if workDir == "" || workDir == "." {
		return CLIInvocation{}, invalidInvocationf("--workdir is required")
	}
	if !filepath.IsAbs(workDir) {
		return CLIInvocation{}, invalidInvocationf("--workdir must be an absolute path (got %q)", workDir)
	}

	parsedMode, err := parseMode(mode)
	if err != nil {
		return CLIInvocation{}, err
	}

	inv := CLIInvocation{
		WorkDir:         workDir,
		Mode:            parsedMode,
		OriginalCatalog: catalogDir,
		OriginalRequest: requestPath,
		OriginalOutput:  outputPath,
	}

	switch parsedMode {
	case ModeCatalog:
		if catalogDir == "" {
			return CLIInvocation{}, invalidInvocationf("--catalog is required for mode catalog")
		}
	case ModePlan:
		if requestPath == "" {
			return CLIInvocation{}, invalidInvocationf("--request is required for mode plan")
		}
	}

	if catalogDir != "" {
		inv.CatalogDir, err = resolveUnderWorkDir(workDir, catalogDir)
		if err != nil {
			return CLIInvocation{}, err
		}
	}
	if requestPath != "" {
		inv.RequestPath, err = resolveUnderWorkDir(workDir, requestPath)
		if err != nil {
			return CLIInvocation{}, err
		}
	}
	if strings.TrimSpace(outputPath) != "" {
		inv.OutputPath, err = resolveUnderWorkDir(workDir, outputPath)
		if err != nil {
			return CLIInvocation{}, err
		}
	}

	return inv, nil
}

func parseMode(raw string) (Mode, error) {
	n := strings.ToLower(strings.TrimSpace(raw))
	switch Mode(n) {
	case ModeCatalog, ModePlan:
		return Mode(n), nil
	case "":
		return "", invalidInvocationf("--mode is required")
	default:
		return "", invalidInvocationf("invalid --mode %q (expected catalog|plan)", raw)
	}
}

func resolveUnderWorkDir(workDir, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", invalidInvocationf("path must not be empty")
	}
	clean := filepath.Clean(p)
	if clean == "." {
		return "", invalidInvocationf("path must not be '.'")
	}

	// If absolute, accept as-is; it is still deterministic.
	// If relative, resolve under WorkDir.
	if filepath.IsAbs(clean) {
		return clean, nil
	}

	// WorkDir is required to be absolute, so Join does not consult process CWD.
	return filepath.Clean(filepath.Join(workDir, clean)), nil
}

// ExitCode extracts a semantic exit code from a ParseInvocation error.
// If the error is not a known invocation error, it returns ExitInternalError.
func ExitCode(err error) int {
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	if err == nil {
		return ExitSuccess
	}
	return ExitInternalError
}

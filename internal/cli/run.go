package cli

import "log/slog"

// Run is a high-level CLI entrypoint suitable for black-box tests.
// It accepts the argument slice (excluding argv[0]) and returns the
// semantic exit code plus any error.
func Run(args []string, log *slog.Logger) (CLIResult, error) {
	inv, err := ParseInvocation(args)
	if err != nil {
		return CLIResult{ExitCode: ExitCode(err)}, err
	}
	return Execute(inv, log)
}

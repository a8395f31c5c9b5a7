package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"pulseweaver/internal/cli"
)

// main is a deterministic boundary: it canonicalizes all CLI inputs into a
// CLIInvocation before any engine logic is invoked.
func main() {
	inv, err := cli.ParseInvocation(os.Args[1:])
	if err != nil {
		var invErr *cli.InvocationError
		if errors.As(err, &invErr) {
			fmt.Fprintln(os.Stderr, invErr.Message)
			os.Exit(invErr.ExitCode)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitInternalError)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	result, execErr := cli.Execute(inv, log)
	if execErr != nil {
		fmt.Fprintln(os.Stderr, execErr)
	}
	if result.Output != "" {
		fmt.Fprint(os.Stdout, result.Output)
	}
	os.Exit(result.ExitCode)
}

package main

import (
	"errors"
	"fmt"
	"os"

	"folio/api/internal/cli"
	"folio/api/internal/config"
)

func main() {
	cmd := cli.NewRootCommand(config.Load())
	if err := cmd.Execute(); err != nil {
		// Failures from a running command were already reported by its formatter.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || exitErr.Err == nil {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}

package main

import (
	"errors"
	"os"

	"github.com/glacio/deploy/internal/cli"
	"github.com/glacio/deploy/internal/run"
)

func main() {
	if err := cli.Execute(); err != nil {
		// Propagate the failing command's exit status
		var exitErr *run.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode != 0 {
			os.Exit(exitErr.ExitCode)
		}

		os.Exit(1)
	}
}

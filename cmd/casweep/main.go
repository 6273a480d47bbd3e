// Package main provides the entry point for the casweep CLI.
package main

import (
	"errors"
	"os"
)

func main() {
	err := Execute()
	if err != nil {
		var exitErr *ExitError
		if !errors.As(err, &exitErr) || exitErr.Message != "" {
			printError("%v", err)
		}
	}
	_ = closeLogging()
	os.Exit(exitCode(err))
}

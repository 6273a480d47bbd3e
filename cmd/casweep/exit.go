package main

import "errors"

// Process exit codes.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// ExitError carries a specific exit code. An empty Message means the
// failure has already been reported to the user.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// exitCode maps an error returned by Execute to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

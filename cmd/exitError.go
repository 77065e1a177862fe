package cmd

import "fmt"

// Process exit codes.
const (
	exitOK         = 0
	exitBadArgs    = 1
	exitNoScripts  = 2
	exitRuntime    = 3
	exitNoPassword = 4
)

// exitError carries the process exit code for a failed command.
type exitError struct {
	Code    int
	Message string
	Err     error
}

func (e *exitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *exitError) Unwrap() error { return e.Err }

func newExitError(code int, msg string, err error) *exitError {
	return &exitError{Code: code, Message: msg, Err: err}
}

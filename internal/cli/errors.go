package cli

import "fmt"

// Reports the exit code a command wants the process to exit with.
//
// Err is nil when the code comes from a delegated tool, which has already
// reported its own failure.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Converts an exit code into an error. Zero yields nil.
func exitWith(code int) error {
	if code == 0 {
		return nil
	}
	return &ExitError{Code: code}
}

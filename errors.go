package rawk

import "fmt"

// ProgramError represents a malformed or inconsistent bytecode program
// detected before execution starts.
type ProgramError struct {
	Message string // Error description
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("program error: %s", e.Message)
}

// RuntimeError represents an error during program execution.
type RuntimeError struct {
	Message string // Error description
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %s", e.Message)
}

// ExitError represents a normal exit with a status code.
// This is not a failure; it indicates the program executed an exit
// instruction with the given status.
type ExitError struct {
	Code int // Exit status code (0 = success)
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit %d", e.Code)
}

// IsExitError reports whether err is an ExitError and returns the exit code.
// Returns (code, true) if err is an ExitError, or (0, false) otherwise.
func IsExitError(err error) (int, bool) {
	if e, ok := err.(*ExitError); ok {
		return e.Code, true
	}
	return 0, false
}

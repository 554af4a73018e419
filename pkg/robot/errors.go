package robot

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownGesture is returned for a gesture that is neither a
	// built-in animation nor a recorded motion. Callers skip it.
	ErrUnknownGesture = errors.New("unknown gesture")

	// ErrUnreachable is returned once the bridge has failed often enough
	// that the link is considered lost.
	ErrUnreachable = errors.New("robot unreachable")
)

// CommandError is a bridge response with a non-2xx status.
type CommandError struct {
	Path       string
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("robot %s: status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("robot %s: status %d: %s", e.Path, e.StatusCode, e.Message)
}

// Rejected reports whether the bridge refused the command itself, as
// opposed to failing to run it.
func (e *CommandError) Rejected() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

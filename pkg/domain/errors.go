package domain

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when an operation requires a configured
// machine (matrix, timers and outputs all set).
var ErrNotConfigured = errors.New("state machine is not configured")

// ErrRunning is returned when configuration is mutated while the machine
// is running.
var ErrRunning = errors.New("configuration is locked while the state machine is running")

// ErrExtraTimersFirst is returned when an extra timer is declared after
// states already exist; extra timers add event columns and must come first.
var ErrExtraTimersFirst = errors.New("extra timers must be defined before any state")

// RangeError reports an out-of-range state, event or output index.
type RangeError struct {
	What  string // "state", "input event", "output"
	Index int
	N     int // number of valid indices
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid %s index %d: must be 0 to %d", e.What, e.Index, e.N-1)
}

// ValidationError reports an inconsistency found while finalizing a state
// matrix: shape mismatches, out-of-range transition targets, or illegal
// output directive values.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid state matrix: " + e.Reason
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

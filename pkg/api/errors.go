package api

import (
	"errors"
	"fmt"
)

var (
	// ErrSuspended is returned by OrchestrationContext calls that have no
	// recorded outcome yet. It is the engine's suspension representative:
	// orchestrator code must propagate it unchanged, and the engine parks
	// the instance when it surfaces from the orchestrator.
	ErrSuspended = errors.New("orchestration suspended")

	// ErrNotFound is returned when an instance id is unknown.
	ErrNotFound = errors.New("instance not found")

	// ErrTerminal is returned when an operation is invalid on an instance
	// that already reached Completed, Failed, or Terminated.
	ErrTerminal = errors.New("instance is in a terminal state")
)

// ValidationError indicates bad input to a public engine operation
// (empty names, unregistered orchestrators, and similar).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Msg
}

// NewValidationError formats a ValidationError.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ActivityError is the typed failure an orchestrator observes when an
// activity it called recorded a TaskFailed event. It is delivered exactly
// once per replay at the call site and is recoverable: orchestrator logic
// may catch it and continue. An ActivityError that escapes the orchestrator
// fails the instance.
type ActivityError struct {
	ActivityName string
	TaskID       int64
	Message      string
}

func (e *ActivityError) Error() string {
	return fmt.Sprintf("activity %q (task %d) failed: %s", e.ActivityName, e.TaskID, e.Message)
}

// NonDeterminismError indicates that a replay diverged from the recorded
// history: the orchestrator made a different decision at a task position
// than the one on record. This is fatal to the instance. The engine marks
// the instance Failed and surfaces the error for diagnosis; it is never
// silently recovered, even if orchestrator code swallows it.
type NonDeterminismError struct {
	TaskID   int64
	Expected string
	Actual   string
}

func (e *NonDeterminismError) Error() string {
	return fmt.Sprintf("non-determinism detected at task %d: history recorded activity %q, current execution scheduled %q",
		e.TaskID, e.Expected, e.Actual)
}

// IsActivityError returns the typed failure if err carries one.
func IsActivityError(err error) (*ActivityError, bool) {
	var ae *ActivityError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsNonDeterminism reports whether err carries a NonDeterminismError.
func IsNonDeterminism(err error) bool {
	var nd *NonDeterminismError
	return errors.As(err, &nd)
}

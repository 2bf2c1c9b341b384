package api

import (
	"context"
	"time"
)

// Status represents the lifecycle state of an orchestration instance.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusRunning    Status = "RUNNING"
	StatusSuspended  Status = "SUSPENDED"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusTerminated Status = "TERMINATED"
)

// IsTerminal reports whether s is one of the terminal states. Once an
// instance reaches a terminal state it never leaves it.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusTerminated
}

// OrchestratorFunc is the deterministic decision logic of an orchestration.
//
// It is re-executed from the beginning on every resume, with previously
// recorded results fed back through the OrchestrationContext. Orchestrator
// code must therefore be deterministic: no wall-clock reads, no randomness,
// no direct I/O. Side effects belong in activities.
//
// When a call on the context has no recorded outcome yet, the context
// returns ErrSuspended; orchestrator code must propagate that error
// unchanged so the engine can park the instance.
type OrchestratorFunc func(ctx *OrchestrationContext) (any, error)

// ActivityFunc is a unit of side-effecting work invoked by orchestrator
// logic and executed out-of-band by a Dispatcher. An activity runs at most
// once per task id; its result is recorded in history and replayed, never
// recomputed.
type ActivityFunc func(ctx context.Context, input any) (any, error)

// Instance holds the persisted state of one orchestration instance.
//
// The instance row is a convenience projection; the instance's event
// history is the sole source of truth for its state.
type Instance struct {
	ID     string
	Name   string
	Status Status
	Input  any
	Output any
	Err    error

	// CreatedAt is the time the instance was scheduled.
	CreatedAt time.Time
}

// InstanceStatus is the caller-facing status view returned by
// Engine.GetStatus. Input and Output are only populated when the caller
// asked for payloads.
type InstanceStatus struct {
	InstanceID string
	Name       string
	Status     Status
	Input      any
	Output     any
	Error      string
	CreatedAt  time.Time
}

// InstanceListOptions controls how instances are listed.
// Zero values mean "no filter" for that field.
type InstanceListOptions struct {
	// OrchestratorName, if non-empty, limits results to instances of the
	// given orchestrator.
	OrchestratorName string

	// Status, if non-empty, limits results to instances with the given status.
	Status Status
}

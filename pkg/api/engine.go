package api

import "context"

// Engine is the public contract of the orchestration scheduler.
//
// Errors follow a small taxonomy: *ValidationError for bad input,
// ErrNotFound for unknown instance ids, and ErrTerminal for operations
// that are invalid on a completed, failed, or terminated instance.
type Engine interface {
	// RegisterOrchestrator registers deterministic decision logic by name.
	RegisterOrchestrator(name string, fn OrchestratorFunc) error

	// RegisterActivity registers a side-effecting activity by name.
	RegisterActivity(name string, fn ActivityFunc) error

	// Schedule creates a new instance of the named orchestrator and runs
	// its first replay pass. It returns the new instance id. Activity
	// calls made by the orchestrator are dispatched asynchronously; an
	// orchestrator that completes without suspending is Completed on
	// return.
	Schedule(ctx context.Context, orchestratorName string, input any) (string, error)

	// RaiseEvent delivers a named external event to an instance. The
	// payload resumes a matching pending wait if there is one, and stays
	// buffered for future consumption otherwise. Raising an event against
	// an unknown instance returns ErrNotFound; against a terminal
	// instance, ErrTerminal.
	RaiseEvent(ctx context.Context, instanceID, eventName string, payload any) error

	// GetStatus returns the status view of an instance. Input and Output
	// are populated only when includePayloads is true.
	GetStatus(ctx context.Context, instanceID string, includePayloads bool) (*InstanceStatus, error)

	// Terminate cancels a non-terminal instance. Activity results and
	// events that arrive afterwards are recorded in history but never
	// resume execution.
	Terminate(ctx context.Context, instanceID string) error

	// GetInstance looks up the full instance record by id.
	GetInstance(ctx context.Context, id string) (*Instance, error)

	// ListInstances returns instances matching the given options.
	// Zero-valued options return all instances.
	ListInstances(ctx context.Context, opts InstanceListOptions) ([]*Instance, error)

	// ListHistory returns an instance's event history in append order.
	ListHistory(ctx context.Context, instanceID string) ([]HistoryEvent, error)
}

// ActivityHost is implemented by engines so that dispatchers can execute
// activity tasks and report their outcomes without importing engine
// internals.
type ActivityHost interface {
	// ActivityFunc looks up a registered activity by name.
	ActivityFunc(name string) (ActivityFunc, error)

	// CompleteActivity appends the outcome of an activity task to the
	// instance's history and resumes the instance. Outcomes delivered to
	// a terminal instance are recorded but ignored.
	CompleteActivity(ctx context.Context, instanceID string, taskID int64, result any, actErr error) error
}

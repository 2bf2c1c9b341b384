package orka

import (
	"context"
	"database/sql"

	"github.com/velhonen/orka/internal/engine"
	"github.com/velhonen/orka/internal/taskqueue"
	"github.com/velhonen/orka/pkg/api"
	"github.com/velhonen/orka/pkg/worker"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Engine               = api.Engine
	ActivityHost         = api.ActivityHost
	OrchestrationContext = api.OrchestrationContext
	OrchestratorFunc     = api.OrchestratorFunc
	ActivityFunc         = api.ActivityFunc
	TaskFuture           = api.TaskFuture
	Instance             = api.Instance
	InstanceStatus       = api.InstanceStatus
	InstanceListOptions  = api.InstanceListOptions
	HistoryEvent         = api.HistoryEvent
	Status               = api.Status
	RetryPolicy          = api.RetryPolicy
	ActivityError        = api.ActivityError
	NonDeterminismError  = api.NonDeterminismError
	ValidationError      = api.ValidationError
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver

	// Queue is re-exported so alternative backend submodules can return
	// queue implementations without importing internal packages.
	Queue = taskqueue.Queue
	Task  = taskqueue.Task
)

// Re-export common helpers and sentinel errors.

var (
	NewLoggingObserver    = api.NewLoggingObserver
	NewCompositeObserver  = api.NewCompositeObserver
	CallActivityWithRetry = api.CallActivityWithRetry

	ErrNotFound  = api.ErrNotFound
	ErrTerminal  = api.ErrTerminal
	ErrSuspended = api.ErrSuspended
)

// Re-export status values for convenience.

const (
	StatusPending    = api.StatusPending
	StatusRunning    = api.StatusRunning
	StatusSuspended  = api.StatusSuspended
	StatusCompleted  = api.StatusCompleted
	StatusFailed     = api.StatusFailed
	StatusTerminated = api.StatusTerminated
)

// Engine constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewInMemoryEngine returns an Engine backed entirely by in-memory stores
// and an in-memory activity task queue. Use NewLocalRunner if you also
// want dispatchers wired up.
func NewInMemoryEngine() Engine {
	return engine.NewInMemoryEngine(taskqueue.NewInMemoryQueue(0))
}

// NewInMemoryEngineWithObserver returns an in-memory Engine with the given Observer.
func NewInMemoryEngineWithObserver(obs Observer) Engine {
	return engine.NewInMemoryEngineWithObserver(taskqueue.NewInMemoryQueue(0), obs)
}

// NewSQLiteEngine returns an Engine that persists instances, histories and
// activity tasks in a SQLite database. Orchestrator and activity
// registrations are kept in-memory and must be repeated on restart.
func NewSQLiteEngine(db *sql.DB) (Engine, error) {
	q, err := taskqueue.NewSQLiteQueue(db)
	if err != nil {
		return nil, err
	}
	return engine.NewSQLiteEngine(db, q)
}

// NewSQLiteEngineWithObserver returns a SQLite-backed Engine with the given Observer.
func NewSQLiteEngineWithObserver(db *sql.DB, obs Observer) (Engine, error) {
	q, err := taskqueue.NewSQLiteQueue(db)
	if err != nil {
		return nil, err
	}
	return engine.NewSQLiteEngineWithObserver(db, q, obs)
}

// NewDispatcher wires a worker.Dispatcher to an Engine built by this module
// (or a backend submodule) and the queue that engine enqueues into. obs may
// be nil.
func NewDispatcher(eng Engine, q Queue, obs Observer) (*worker.Dispatcher, error) {
	host, ok := eng.(ActivityHost)
	if !ok {
		return nil, api.NewValidationError("engine does not host activities")
	}
	return worker.NewWithObserver(host, q, obs), nil
}

// Convenience helpers that just forward to the underlying Engine.

// Schedule creates a new instance of a registered orchestrator and runs it
// up to its first suspension point.
func Schedule(ctx context.Context, eng Engine, orchestratorName string, input any) (string, error) {
	return eng.Schedule(ctx, orchestratorName, input)
}

// RaiseEvent delivers a named external event to a running instance.
func RaiseEvent(ctx context.Context, eng Engine, instanceID, eventName string, payload any) error {
	return eng.RaiseEvent(ctx, instanceID, eventName, payload)
}

// GetStatus fetches the status summary of an instance.
func GetStatus(ctx context.Context, eng Engine, instanceID string, includePayloads bool) (*InstanceStatus, error) {
	return eng.GetStatus(ctx, instanceID, includePayloads)
}

// Terminate forcibly cancels a non-terminal instance.
func Terminate(ctx context.Context, eng Engine, instanceID string) error {
	return eng.Terminate(ctx, instanceID)
}

// ListInstances lists orchestration instances according to the given options.
func ListInstances(ctx context.Context, eng Engine, opts InstanceListOptions) ([]*Instance, error) {
	return eng.ListInstances(ctx, opts)
}

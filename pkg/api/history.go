package api

import "time"

// EventType identifies a history event variant.
type EventType string

const (
	// EventOrchestratorStarted is the first event of every instance and
	// records the orchestrator name and the original input.
	EventOrchestratorStarted EventType = "orchestrator.started"

	// EventTaskScheduled records a decision to invoke an activity. It is
	// appended the first time the orchestrator reaches the call site; on
	// replay the recorded event is matched instead, which is what keeps
	// activity dispatch at-most-once per task id.
	EventTaskScheduled EventType = "task.scheduled"

	// EventTaskCompleted records an activity result for a task id.
	EventTaskCompleted EventType = "task.completed"

	// EventTaskFailed records an activity failure for a task id.
	EventTaskFailed EventType = "task.failed"

	// EventExternalRaised records an externally raised named event. The
	// payload stays buffered in history until a matching wait consumes it.
	EventExternalRaised EventType = "external.raised"

	// EventExecutionCompleted closes the history: the instance reached
	// Completed, Failed, or Terminated.
	EventExecutionCompleted EventType = "execution.completed"
)

// HistoryEvent is one record in an instance's append-only history.
//
// The full ordered event sequence for an instance is the sole source of
// truth for its state; everything in memory is a disposable projection
// rebuilt by replay. Events are immutable once appended and their sequence
// numbers are strictly increasing and gapless per instance.
//
// The struct is deliberately flat; which fields are meaningful depends on
// Type.
type HistoryEvent struct {
	InstanceID string
	Sequence   int64
	Type       EventType
	At         time.Time

	// OrchestratorStarted / ExecutionCompleted.
	OrchestratorName string
	Status           Status

	// TaskScheduled / TaskCompleted / TaskFailed. TaskID is the decision
	// counter assigned during orchestrator execution; it is stable across
	// replays, unlike Sequence which is assigned at append time.
	TaskID       int64
	ActivityName string

	// ExternalRaised.
	EventName string

	// Input carries the orchestration input, activity input, or external
	// event payload; Result carries the activity result or final output.
	Input  any
	Result any

	// Error is the failure message for TaskFailed and failed
	// ExecutionCompleted events.
	Error string
}

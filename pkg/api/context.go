package api

import "errors"

// PendingActionKind identifies a variant of PendingAction.
type PendingActionKind string

const (
	// ActionActivityCall is a scheduled activity invocation whose result
	// has not been recorded yet.
	ActionActivityCall PendingActionKind = "activity-call"

	// ActionEventWait is an unfulfilled wait for a named external event.
	ActionEventWait PendingActionKind = "event-wait"
)

// PendingAction is a not-yet-fulfilled request produced during replay.
// The set of pending actions is rebuilt on every replay pass and cleared
// as matching history events are appended; it is never persisted.
type PendingAction struct {
	Kind PendingActionKind

	// ActivityCall.
	TaskID       int64
	ActivityName string
	Input        any

	// EventWait.
	EventName string
}

// ExecutionResult is the outcome of one replay pass.
type ExecutionResult struct {
	// Completed is true when the instance reached a terminal outcome:
	// Output on success, Err on failure (including non-determinism).
	Completed bool
	Output    any
	Err       error

	// NewEvents are decisions first made during this pass (TaskScheduled
	// events); the scheduler appends them to history and dispatches the
	// corresponding activity tasks. Replayed decisions never reappear here.
	NewEvents []HistoryEvent

	// Pending is the full set of unfulfilled requests after this pass,
	// including ones whose TaskScheduled event was appended by an earlier
	// pass. Empty when Completed.
	Pending []PendingAction
}

// OrchestrationContext is the execution context handed to an
// OrchestratorFunc. It carries the recorded history of the instance and
// replays recorded outcomes back to the orchestrator, so that deciding code
// never re-runs a side effect.
//
// A context is valid for a single replay pass and must not be retained or
// shared across goroutines.
type OrchestrationContext struct {
	instanceID string
	name       string
	input      any

	scheduled map[int64]HistoryEvent
	results   map[int64]HistoryEvent
	events    *CorrelationTable

	nextTaskID int64
	replaying  bool
	ndErr      *NonDeterminismError

	newEvents []HistoryEvent
	pending   []PendingAction
}

// TaskFuture is a handle to a scheduled activity call. Await delivers the
// recorded result, a typed ActivityError, or ErrSuspended when the result
// is not recorded yet.
type TaskFuture struct {
	ctx    *OrchestrationContext
	taskID int64
	name   string
}

// Execute runs one replay pass of fn against the given ordered history.
//
// The history must start with an OrchestratorStarted event. Execute re-runs
// fn from the beginning, feeding recorded task results and external event
// payloads back synchronously; when fn requests something with no recorded
// outcome, the request is captured as a PendingAction and fn is expected to
// return ErrSuspended.
//
// Given deterministic fn, Execute is a pure function of the history: the
// same event sequence always reproduces the same result.
func Execute(fn OrchestratorFunc, history []HistoryEvent) *ExecutionResult {
	if len(history) == 0 || history[0].Type != EventOrchestratorStarted {
		return &ExecutionResult{
			Completed: true,
			Err:       errors.New("history must begin with an orchestrator.started event"),
		}
	}

	octx := &OrchestrationContext{
		instanceID: history[0].InstanceID,
		name:       history[0].OrchestratorName,
		input:      history[0].Input,
		scheduled:  make(map[int64]HistoryEvent),
		results:    make(map[int64]HistoryEvent),
		events:     NewCorrelationTable(history),
	}
	for _, ev := range history {
		switch ev.Type {
		case EventTaskScheduled:
			octx.scheduled[ev.TaskID] = ev
		case EventTaskCompleted, EventTaskFailed:
			octx.results[ev.TaskID] = ev
		}
	}
	// The pass starts in replay mode iff any prior decision is on record.
	octx.replaying = len(octx.scheduled) > 0 || octx.events.total() > 0

	output, err := fn(octx)

	// Non-determinism is fatal no matter what the orchestrator returned;
	// discard any decisions made after the divergence point.
	if octx.ndErr != nil {
		return &ExecutionResult{Completed: true, Err: octx.ndErr}
	}

	res := &ExecutionResult{
		NewEvents: octx.newEvents,
		Pending:   octx.pending,
	}
	switch {
	case err == nil:
		res.Completed = true
		res.Output = output
		res.NewEvents = nil
		res.Pending = nil
	case errors.Is(err, ErrSuspended):
		// Parked; decisions and pending actions stand.
	default:
		res.Completed = true
		res.Err = err
		res.NewEvents = nil
		res.Pending = nil
	}
	return res
}

// InstanceID returns the id of the instance being executed.
func (c *OrchestrationContext) InstanceID() string { return c.instanceID }

// Name returns the orchestrator name the instance was scheduled with.
func (c *OrchestrationContext) Name() string { return c.name }

// Input returns the original input recorded when the instance was scheduled.
func (c *OrchestrationContext) Input() any { return c.input }

// IsReplaying reports whether the orchestrator is currently re-traversing
// decisions that are already on record. Useful to suppress duplicate
// side-channel output such as logging.
func (c *OrchestrationContext) IsReplaying() bool { return c.replaying }

// ScheduleActivity consumes the next task position. If history already
// holds a TaskScheduled decision there, the recorded decision is matched
// against the requested activity name; a mismatch means the orchestrator
// code diverged from its own history and the instance fails with a
// NonDeterminismError. Otherwise the decision is appended as a new event
// and the call becomes a pending activity action.
func (c *OrchestrationContext) ScheduleActivity(name string, input any) *TaskFuture {
	id := c.nextTaskID
	c.nextTaskID++

	if ev, ok := c.scheduled[id]; ok {
		if ev.ActivityName != name {
			c.ndErr = &NonDeterminismError{TaskID: id, Expected: ev.ActivityName, Actual: name}
		} else if _, done := c.results[id]; !done {
			// Scheduled by an earlier pass, still outstanding.
			c.pending = append(c.pending, PendingAction{
				Kind:         ActionActivityCall,
				TaskID:       id,
				ActivityName: ev.ActivityName,
				Input:        ev.Input,
			})
		}
		return &TaskFuture{ctx: c, taskID: id, name: name}
	}

	c.replaying = false
	c.newEvents = append(c.newEvents, HistoryEvent{
		InstanceID:   c.instanceID,
		Type:         EventTaskScheduled,
		TaskID:       id,
		ActivityName: name,
		Input:        input,
	})
	c.pending = append(c.pending, PendingAction{
		Kind:         ActionActivityCall,
		TaskID:       id,
		ActivityName: name,
		Input:        input,
	})
	return &TaskFuture{ctx: c, taskID: id, name: name}
}

// CallActivity schedules an activity and awaits its result in one call.
func (c *OrchestrationContext) CallActivity(name string, input any) (any, error) {
	return c.ScheduleActivity(name, input).Await()
}

// WaitExternalEvent waits for a named external event. If an unconsumed
// payload for the name is buffered in history it is consumed FIFO and
// returned immediately; otherwise the wait becomes a pending action and
// ErrSuspended is returned.
func (c *OrchestrationContext) WaitExternalEvent(name string) (any, error) {
	if c.ndErr != nil {
		return nil, c.ndErr
	}
	if payload, ok := c.events.Consume(name); ok {
		return payload, nil
	}
	c.replaying = false
	c.pending = append(c.pending, PendingAction{Kind: ActionEventWait, EventName: name})
	return nil, ErrSuspended
}

// Await returns the recorded outcome of the task: the activity result, a
// typed *ActivityError if the activity failed, or ErrSuspended when no
// outcome is recorded yet.
func (f *TaskFuture) Await() (any, error) {
	if f.ctx.ndErr != nil {
		return nil, f.ctx.ndErr
	}
	if ev, ok := f.ctx.results[f.taskID]; ok {
		if ev.Type == EventTaskFailed {
			return nil, &ActivityError{ActivityName: f.name, TaskID: f.taskID, Message: ev.Error}
		}
		return ev.Result, nil
	}
	f.ctx.replaying = false
	return nil, ErrSuspended
}

func (t *CorrelationTable) total() int {
	n := 0
	for _, q := range t.queues {
		n += len(q)
	}
	return n
}

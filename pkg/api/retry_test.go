package api

import (
	"errors"
	"testing"
)

func retryingOrchestrator(policy RetryPolicy) OrchestratorFunc {
	return func(ctx *OrchestrationContext) (any, error) {
		return CallActivityWithRetry(ctx, policy, "flaky", "in")
	}
}

func TestRetrySchedulesFreshTaskPerAttempt(t *testing.T) {
	fn := retryingOrchestrator(RetryPolicy{MaxAttempts: 3})

	// First attempt failed; replay must schedule attempt two under a new id.
	res := Execute(fn, []HistoryEvent{
		startedEvent("retrying", nil),
		{Type: EventTaskScheduled, TaskID: 0, ActivityName: "flaky", Input: "in"},
		{Type: EventTaskFailed, TaskID: 0, Error: "transient"},
	})

	if res.Completed {
		t.Fatalf("expected suspension for retry attempt, got err=%v output=%v", res.Err, res.Output)
	}
	if len(res.NewEvents) != 1 || res.NewEvents[0].TaskID != 1 {
		t.Fatalf("expected retry scheduled as task 1, got %+v", res.NewEvents)
	}
}

func TestRetrySucceedsOnLaterAttempt(t *testing.T) {
	fn := retryingOrchestrator(RetryPolicy{MaxAttempts: 3})

	res := Execute(fn, []HistoryEvent{
		startedEvent("retrying", nil),
		{Type: EventTaskScheduled, TaskID: 0, ActivityName: "flaky", Input: "in"},
		{Type: EventTaskFailed, TaskID: 0, Error: "transient"},
		{Type: EventTaskScheduled, TaskID: 1, ActivityName: "flaky", Input: "in"},
		{Type: EventTaskCompleted, TaskID: 1, Result: "ok"},
	})

	if !res.Completed || res.Err != nil {
		t.Fatalf("expected completion, got err=%v", res.Err)
	}
	if res.Output != "ok" {
		t.Fatalf("expected ok, got %v", res.Output)
	}
}

func TestRetryExhaustionReturnsLastActivityError(t *testing.T) {
	fn := retryingOrchestrator(RetryPolicy{MaxAttempts: 2})

	res := Execute(fn, []HistoryEvent{
		startedEvent("retrying", nil),
		{Type: EventTaskScheduled, TaskID: 0, ActivityName: "flaky", Input: "in"},
		{Type: EventTaskFailed, TaskID: 0, Error: "first"},
		{Type: EventTaskScheduled, TaskID: 1, ActivityName: "flaky", Input: "in"},
		{Type: EventTaskFailed, TaskID: 1, Error: "second"},
	})

	if !res.Completed {
		t.Fatalf("expected terminal failure after exhaustion")
	}
	actErr, ok := IsActivityError(res.Err)
	if !ok {
		t.Fatalf("expected *ActivityError, got %T: %v", res.Err, res.Err)
	}
	if actErr.TaskID != 1 || actErr.Message != "second" {
		t.Fatalf("expected last attempt's error, got %+v", actErr)
	}
}

func TestRetryZeroMaxAttemptsMeansSingleCall(t *testing.T) {
	fn := retryingOrchestrator(RetryPolicy{})

	res := Execute(fn, []HistoryEvent{
		startedEvent("retrying", nil),
		{Type: EventTaskScheduled, TaskID: 0, ActivityName: "flaky", Input: "in"},
		{Type: EventTaskFailed, TaskID: 0, Error: "boom"},
	})

	if !res.Completed {
		t.Fatalf("expected failure without retry")
	}
	if _, ok := IsActivityError(res.Err); !ok {
		t.Fatalf("expected *ActivityError, got %v", res.Err)
	}
	if len(res.NewEvents) != 0 {
		t.Fatalf("no retry decision expected, got %+v", res.NewEvents)
	}
}

func TestRetryDoesNotRetrySuspension(t *testing.T) {
	fn := retryingOrchestrator(RetryPolicy{MaxAttempts: 5})

	res := Execute(fn, []HistoryEvent{startedEvent("retrying", nil)})

	if res.Completed {
		t.Fatalf("expected suspension on first attempt")
	}
	if len(res.NewEvents) != 1 {
		t.Fatalf("suspension must not burn retry attempts, got %d decisions", len(res.NewEvents))
	}
}

func TestIsNonDeterminismHelper(t *testing.T) {
	if IsNonDeterminism(errors.New("plain")) {
		t.Fatalf("plain error misclassified")
	}
	if !IsNonDeterminism(&NonDeterminismError{TaskID: 2, Expected: "a", Actual: "b"}) {
		t.Fatalf("NonDeterminismError not recognized")
	}
}

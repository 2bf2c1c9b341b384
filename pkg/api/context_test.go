package api

import (
	"errors"
	"fmt"
	"testing"
)

func startedEvent(name string, input any) HistoryEvent {
	return HistoryEvent{
		InstanceID:       "inst-1",
		Sequence:         1,
		Type:             EventOrchestratorStarted,
		OrchestratorName: name,
		Input:            input,
	}
}

func twoStepOrchestrator(ctx *OrchestrationContext) (any, error) {
	a, err := ctx.CallActivity("step-a", ctx.Input())
	if err != nil {
		return nil, err
	}
	b, err := ctx.CallActivity("step-b", a)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func TestExecuteFirstPassSchedulesFirstActivity(t *testing.T) {
	res := Execute(twoStepOrchestrator, []HistoryEvent{startedEvent("two-step", 41)})

	if res.Completed {
		t.Fatalf("expected suspension, got completed (err=%v, output=%v)", res.Err, res.Output)
	}
	if len(res.NewEvents) != 1 {
		t.Fatalf("expected 1 new event, got %d", len(res.NewEvents))
	}
	ev := res.NewEvents[0]
	if ev.Type != EventTaskScheduled || ev.ActivityName != "step-a" || ev.TaskID != 0 {
		t.Fatalf("unexpected scheduled event: %+v", ev)
	}
	if ev.Input != 41 {
		t.Fatalf("expected input 41, got %v", ev.Input)
	}
	if len(res.Pending) != 1 || res.Pending[0].Kind != ActionActivityCall {
		t.Fatalf("expected one pending activity call, got %+v", res.Pending)
	}
}

func TestExecuteReplayAdvancesToNextDecision(t *testing.T) {
	history := []HistoryEvent{
		startedEvent("two-step", 41),
		{Type: EventTaskScheduled, TaskID: 0, ActivityName: "step-a", Input: 41},
		{Type: EventTaskCompleted, TaskID: 0, Result: 42},
	}

	res := Execute(twoStepOrchestrator, history)

	if res.Completed {
		t.Fatalf("expected suspension, got completed")
	}
	if len(res.NewEvents) != 1 {
		t.Fatalf("expected 1 new event, got %d", len(res.NewEvents))
	}
	ev := res.NewEvents[0]
	if ev.ActivityName != "step-b" || ev.TaskID != 1 {
		t.Fatalf("unexpected second decision: %+v", ev)
	}
	if ev.Input != 42 {
		t.Fatalf("step-b should receive step-a's result, got %v", ev.Input)
	}
}

func TestExecuteCompletesFromFullHistory(t *testing.T) {
	history := []HistoryEvent{
		startedEvent("two-step", 41),
		{Type: EventTaskScheduled, TaskID: 0, ActivityName: "step-a", Input: 41},
		{Type: EventTaskCompleted, TaskID: 0, Result: 42},
		{Type: EventTaskScheduled, TaskID: 1, ActivityName: "step-b", Input: 42},
		{Type: EventTaskCompleted, TaskID: 1, Result: 43},
	}

	res := Execute(twoStepOrchestrator, history)

	if !res.Completed || res.Err != nil {
		t.Fatalf("expected clean completion, got completed=%v err=%v", res.Completed, res.Err)
	}
	if res.Output != 43 {
		t.Fatalf("expected output 43, got %v", res.Output)
	}
	if len(res.NewEvents) != 0 || len(res.Pending) != 0 {
		t.Fatalf("completed pass should carry no new events or pending actions")
	}
}

func TestExecuteIsPureFunctionOfHistory(t *testing.T) {
	history := []HistoryEvent{
		startedEvent("two-step", 1),
		{Type: EventTaskScheduled, TaskID: 0, ActivityName: "step-a", Input: 1},
		{Type: EventTaskCompleted, TaskID: 0, Result: 2},
	}

	first := Execute(twoStepOrchestrator, history)
	second := Execute(twoStepOrchestrator, history)

	if len(first.NewEvents) != len(second.NewEvents) {
		t.Fatalf("replay not reproducible: %d vs %d new events", len(first.NewEvents), len(second.NewEvents))
	}
	if first.NewEvents[0].TaskID != second.NewEvents[0].TaskID {
		t.Fatalf("task ids differ across identical replays: %d vs %d",
			first.NewEvents[0].TaskID, second.NewEvents[0].TaskID)
	}
}

func TestExecuteActivityFailureSurfacesTypedError(t *testing.T) {
	history := []HistoryEvent{
		startedEvent("two-step", 1),
		{Type: EventTaskScheduled, TaskID: 0, ActivityName: "step-a", Input: 1},
		{Type: EventTaskFailed, TaskID: 0, Error: "disk full"},
	}

	res := Execute(twoStepOrchestrator, history)

	if !res.Completed || res.Err == nil {
		t.Fatalf("expected failure, got completed=%v err=%v", res.Completed, res.Err)
	}
	var actErr *ActivityError
	if !errors.As(res.Err, &actErr) {
		t.Fatalf("expected *ActivityError, got %T: %v", res.Err, res.Err)
	}
	if actErr.ActivityName != "step-a" || actErr.TaskID != 0 || actErr.Message != "disk full" {
		t.Fatalf("unexpected activity error: %+v", actErr)
	}
}

func TestExecuteDetectsRenamedActivity(t *testing.T) {
	history := []HistoryEvent{
		startedEvent("drifted", nil),
		{Type: EventTaskScheduled, TaskID: 0, ActivityName: "old-name", Input: nil},
	}

	drifted := func(ctx *OrchestrationContext) (any, error) {
		return ctx.CallActivity("new-name", nil)
	}

	res := Execute(drifted, history)

	if !res.Completed {
		t.Fatalf("non-determinism must complete the instance")
	}
	var ndErr *NonDeterminismError
	if !errors.As(res.Err, &ndErr) {
		t.Fatalf("expected *NonDeterminismError, got %T: %v", res.Err, res.Err)
	}
	if ndErr.Expected != "old-name" || ndErr.Actual != "new-name" || ndErr.TaskID != 0 {
		t.Fatalf("unexpected mismatch detail: %+v", ndErr)
	}
}

func TestExecuteNonDeterminismCannotBeSwallowed(t *testing.T) {
	history := []HistoryEvent{
		startedEvent("swallower", nil),
		{Type: EventTaskScheduled, TaskID: 0, ActivityName: "recorded", Input: nil},
	}

	swallower := func(ctx *OrchestrationContext) (any, error) {
		// Ignores the error and reports success anyway.
		_, _ = ctx.CallActivity("something-else", nil)
		return "fine", nil
	}

	res := Execute(swallower, history)

	var ndErr *NonDeterminismError
	if !res.Completed || !errors.As(res.Err, &ndErr) {
		t.Fatalf("swallowed non-determinism must still fail the pass, got err=%v", res.Err)
	}
	if res.Output != nil {
		t.Fatalf("output must be discarded on non-determinism, got %v", res.Output)
	}
	if len(res.NewEvents) != 0 {
		t.Fatalf("decisions after divergence must be discarded, got %d", len(res.NewEvents))
	}
}

func TestExecuteExternalEventConsumedFromHistory(t *testing.T) {
	waiter := func(ctx *OrchestrationContext) (any, error) {
		return ctx.WaitExternalEvent("Approval")
	}

	res := Execute(waiter, []HistoryEvent{startedEvent("waiter", nil)})
	if res.Completed {
		t.Fatalf("expected suspension while no event recorded")
	}
	if len(res.Pending) != 1 || res.Pending[0].Kind != ActionEventWait || res.Pending[0].EventName != "Approval" {
		t.Fatalf("expected pending Approval wait, got %+v", res.Pending)
	}

	res = Execute(waiter, []HistoryEvent{
		startedEvent("waiter", nil),
		{Type: EventExternalRaised, EventName: "Approval", Input: "granted"},
	})
	if !res.Completed || res.Err != nil {
		t.Fatalf("expected completion after event, got err=%v", res.Err)
	}
	if res.Output != "granted" {
		t.Fatalf("expected event payload as output, got %v", res.Output)
	}
}

func TestExecuteEventsWithSameNameConsumedInOrder(t *testing.T) {
	pair := func(ctx *OrchestrationContext) (any, error) {
		first, err := ctx.WaitExternalEvent("tick")
		if err != nil {
			return nil, err
		}
		second, err := ctx.WaitExternalEvent("tick")
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("%v,%v", first, second), nil
	}

	res := Execute(pair, []HistoryEvent{
		startedEvent("pair", nil),
		{Type: EventExternalRaised, EventName: "tick", Input: "one"},
		{Type: EventExternalRaised, EventName: "tick", Input: "two"},
	})

	if !res.Completed || res.Err != nil {
		t.Fatalf("expected completion, got err=%v", res.Err)
	}
	if res.Output != "one,two" {
		t.Fatalf("events must be consumed FIFO per name, got %v", res.Output)
	}
}

func TestExecuteDistinctEventNamesAreIndependent(t *testing.T) {
	crossed := func(ctx *OrchestrationContext) (any, error) {
		b, err := ctx.WaitExternalEvent("b")
		if err != nil {
			return nil, err
		}
		a, err := ctx.WaitExternalEvent("a")
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("%v/%v", b, a), nil
	}

	// "a" was raised first but must not satisfy the wait for "b".
	res := Execute(crossed, []HistoryEvent{
		startedEvent("crossed", nil),
		{Type: EventExternalRaised, EventName: "a", Input: "A"},
		{Type: EventExternalRaised, EventName: "b", Input: "B"},
	})

	if !res.Completed || res.Err != nil {
		t.Fatalf("expected completion, got err=%v", res.Err)
	}
	if res.Output != "B/A" {
		t.Fatalf("expected B/A, got %v", res.Output)
	}
}

func TestExecuteIsReplayingTransitions(t *testing.T) {
	var flags []bool
	probe := func(ctx *OrchestrationContext) (any, error) {
		flags = append(flags, ctx.IsReplaying())
		if _, err := ctx.CallActivity("work", nil); err != nil {
			return nil, err
		}
		flags = append(flags, ctx.IsReplaying())
		return nil, nil
	}

	flags = nil
	Execute(probe, []HistoryEvent{startedEvent("probe", nil)})
	if len(flags) != 1 || flags[0] {
		t.Fatalf("first pass should not be replaying, flags=%v", flags)
	}

	flags = nil
	Execute(probe, []HistoryEvent{
		startedEvent("probe", nil),
		{Type: EventTaskScheduled, TaskID: 0, ActivityName: "work"},
		{Type: EventTaskCompleted, TaskID: 0, Result: nil},
	})
	if len(flags) != 2 || !flags[0] {
		t.Fatalf("second pass should start in replay mode, flags=%v", flags)
	}
}

func TestExecuteOrchestratorErrorFailsInstance(t *testing.T) {
	boom := errors.New("business rule violated")
	failing := func(ctx *OrchestrationContext) (any, error) {
		return nil, boom
	}

	res := Execute(failing, []HistoryEvent{startedEvent("failing", nil)})

	if !res.Completed || !errors.Is(res.Err, boom) {
		t.Fatalf("expected orchestrator error to fail the instance, got %v", res.Err)
	}
}

func TestExecuteRejectsHistoryWithoutStart(t *testing.T) {
	res := Execute(twoStepOrchestrator, nil)
	if !res.Completed || res.Err == nil {
		t.Fatalf("empty history must be rejected")
	}

	res = Execute(twoStepOrchestrator, []HistoryEvent{
		{Type: EventTaskScheduled, TaskID: 0, ActivityName: "step-a"},
	})
	if !res.Completed || res.Err == nil {
		t.Fatalf("history not starting with orchestrator.started must be rejected")
	}
}

func TestScheduleActivityFanOutAssignsSequentialIDs(t *testing.T) {
	fan := func(ctx *OrchestrationContext) (any, error) {
		f1 := ctx.ScheduleActivity("work", "x")
		f2 := ctx.ScheduleActivity("work", "y")
		f3 := ctx.ScheduleActivity("work", "z")
		if _, err := f1.Await(); err != nil {
			return nil, err
		}
		if _, err := f2.Await(); err != nil {
			return nil, err
		}
		return f3.Await()
	}

	res := Execute(fan, []HistoryEvent{startedEvent("fan", nil)})

	if res.Completed {
		t.Fatalf("expected suspension")
	}
	if len(res.NewEvents) != 3 {
		t.Fatalf("all three decisions should be recorded before the first await suspends, got %d", len(res.NewEvents))
	}
	for i, ev := range res.NewEvents {
		if ev.TaskID != int64(i) {
			t.Fatalf("expected task id %d, got %d", i, ev.TaskID)
		}
	}
}

func TestScheduleActivityPartialResultsReported(t *testing.T) {
	fan := func(ctx *OrchestrationContext) (any, error) {
		f1 := ctx.ScheduleActivity("work", "x")
		f2 := ctx.ScheduleActivity("work", "y")
		a, err := f1.Await()
		if err != nil {
			return nil, err
		}
		b, err := f2.Await()
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("%v%v", a, b), nil
	}

	// Second task finished first; the first await must still suspend.
	res := Execute(fan, []HistoryEvent{
		startedEvent("fan", nil),
		{Type: EventTaskScheduled, TaskID: 0, ActivityName: "work", Input: "x"},
		{Type: EventTaskScheduled, TaskID: 1, ActivityName: "work", Input: "y"},
		{Type: EventTaskCompleted, TaskID: 1, Result: "Y"},
	})

	if res.Completed {
		t.Fatalf("expected suspension while task 0 outstanding")
	}
	if len(res.NewEvents) != 0 {
		t.Fatalf("replay must not re-record decisions, got %d new events", len(res.NewEvents))
	}
	found := false
	for _, p := range res.Pending {
		if p.Kind == ActionActivityCall && p.TaskID == 0 {
			found = true
		}
	}
	if !found {
		t.Fatalf("task 0 should still be pending, got %+v", res.Pending)
	}
}

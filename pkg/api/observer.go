package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the orchestration engine for logging and
// metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay instance execution.
type Observer interface {
	// OnOrchestrationScheduled is called once when an instance is created,
	// before its first replay pass.
	OnOrchestrationScheduled(ctx context.Context, inst *Instance)

	// OnOrchestrationCompleted is called when an instance reaches
	// StatusCompleted.
	OnOrchestrationCompleted(ctx context.Context, inst *Instance)

	// OnOrchestrationFailed is called when an instance transitions to
	// StatusFailed, including failures caused by detected non-determinism.
	OnOrchestrationFailed(ctx context.Context, inst *Instance, err error)

	// OnOrchestrationTerminated is called when an instance is cancelled
	// via Terminate.
	OnOrchestrationTerminated(ctx context.Context, inst *Instance)

	// OnEventRaised is called when an external event is appended to an
	// instance's history.
	OnEventRaised(ctx context.Context, inst *Instance, eventName string)

	// OnActivityStart is called by a dispatcher before invoking an
	// activity function.
	OnActivityStart(ctx context.Context, instanceID, activityName string, taskID int64)

	// OnActivityCompleted is called after an activity function returns,
	// for both successes and failures (err != nil).
	OnActivityCompleted(ctx context.Context, instanceID, activityName string, taskID int64, err error, duration time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnOrchestrationScheduled(ctx context.Context, inst *Instance)             {}
func (NoopObserver) OnOrchestrationCompleted(ctx context.Context, inst *Instance)             {}
func (NoopObserver) OnOrchestrationFailed(ctx context.Context, inst *Instance, err error)     {}
func (NoopObserver) OnOrchestrationTerminated(ctx context.Context, inst *Instance)            {}
func (NoopObserver) OnEventRaised(ctx context.Context, inst *Instance, eventName string)      {}
func (NoopObserver) OnActivityStart(ctx context.Context, instanceID, name string, id int64)   {}
func (NoopObserver) OnActivityCompleted(ctx context.Context, instanceID, name string, id int64, err error, d time.Duration) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnOrchestrationScheduled(ctx context.Context, inst *Instance) {
	for _, o := range c.observers {
		o.OnOrchestrationScheduled(ctx, inst)
	}
}

func (c *CompositeObserver) OnOrchestrationCompleted(ctx context.Context, inst *Instance) {
	for _, o := range c.observers {
		o.OnOrchestrationCompleted(ctx, inst)
	}
}

func (c *CompositeObserver) OnOrchestrationFailed(ctx context.Context, inst *Instance, err error) {
	for _, o := range c.observers {
		o.OnOrchestrationFailed(ctx, inst, err)
	}
}

func (c *CompositeObserver) OnOrchestrationTerminated(ctx context.Context, inst *Instance) {
	for _, o := range c.observers {
		o.OnOrchestrationTerminated(ctx, inst)
	}
}

func (c *CompositeObserver) OnEventRaised(ctx context.Context, inst *Instance, eventName string) {
	for _, o := range c.observers {
		o.OnEventRaised(ctx, inst, eventName)
	}
}

func (c *CompositeObserver) OnActivityStart(ctx context.Context, instanceID, name string, id int64) {
	for _, o := range c.observers {
		o.OnActivityStart(ctx, instanceID, name, id)
	}
}

func (c *CompositeObserver) OnActivityCompleted(ctx context.Context, instanceID, name string, id int64, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnActivityCompleted(ctx, instanceID, name, id, err, d)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs orchestration and
// activity lifecycle events using the provided slog.Logger. If logger is
// nil, slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnOrchestrationScheduled(ctx context.Context, inst *Instance) {
	o.Logger.InfoContext(ctx, "orchestration_scheduled",
		slog.String("orchestrator", inst.Name),
		slog.String("instance_id", inst.ID),
	)
}

func (o *LoggingObserver) OnOrchestrationCompleted(ctx context.Context, inst *Instance) {
	o.Logger.InfoContext(ctx, "orchestration_completed",
		slog.String("orchestrator", inst.Name),
		slog.String("instance_id", inst.ID),
	)
}

func (o *LoggingObserver) OnOrchestrationFailed(ctx context.Context, inst *Instance, err error) {
	o.Logger.ErrorContext(ctx, "orchestration_failed",
		slog.String("orchestrator", inst.Name),
		slog.String("instance_id", inst.ID),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnOrchestrationTerminated(ctx context.Context, inst *Instance) {
	o.Logger.InfoContext(ctx, "orchestration_terminated",
		slog.String("orchestrator", inst.Name),
		slog.String("instance_id", inst.ID),
	)
}

func (o *LoggingObserver) OnEventRaised(ctx context.Context, inst *Instance, eventName string) {
	o.Logger.DebugContext(ctx, "event_raised",
		slog.String("orchestrator", inst.Name),
		slog.String("instance_id", inst.ID),
		slog.String("event", eventName),
	)
}

func (o *LoggingObserver) OnActivityStart(ctx context.Context, instanceID, name string, id int64) {
	o.Logger.DebugContext(ctx, "activity_start",
		slog.String("instance_id", instanceID),
		slog.String("activity", name),
		slog.Int64("task_id", id),
	)
}

func (o *LoggingObserver) OnActivityCompleted(ctx context.Context, instanceID, name string, id int64, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "activity_completed",
		slog.String("instance_id", instanceID),
		slog.String("activity", name),
		slog.Int64("task_id", id),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate activity durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	scheduled  atomic.Int64
	completed  atomic.Int64
	failed     atomic.Int64
	terminated atomic.Int64

	eventsRaised          atomic.Int64
	activitiesCompleted   atomic.Int64
	totalActivityDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	Scheduled  int64
	Completed  int64
	Failed     int64
	Terminated int64
	InFlight   int64

	EventsRaised        int64
	ActivitiesCompleted int64
	AvgActivityDuration time.Duration
}

func (m *BasicMetrics) OnOrchestrationScheduled(ctx context.Context, inst *Instance) {
	m.scheduled.Add(1)
}

func (m *BasicMetrics) OnOrchestrationCompleted(ctx context.Context, inst *Instance) {
	m.completed.Add(1)
}

func (m *BasicMetrics) OnOrchestrationFailed(ctx context.Context, inst *Instance, err error) {
	m.failed.Add(1)
}

func (m *BasicMetrics) OnOrchestrationTerminated(ctx context.Context, inst *Instance) {
	m.terminated.Add(1)
}

func (m *BasicMetrics) OnEventRaised(ctx context.Context, inst *Instance, eventName string) {
	m.eventsRaised.Add(1)
}

func (m *BasicMetrics) OnActivityCompleted(ctx context.Context, instanceID, name string, id int64, err error, d time.Duration) {
	// Only count successful activities for average duration.
	if err == nil {
		m.activitiesCompleted.Add(1)
		m.totalActivityDuration.Add(d.Nanoseconds())
	}
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	scheduled := m.scheduled.Load()
	completed := m.completed.Load()
	failed := m.failed.Load()
	terminated := m.terminated.Load()
	acts := m.activitiesCompleted.Load()
	totalNs := m.totalActivityDuration.Load()

	var avg time.Duration
	if acts > 0 {
		avg = time.Duration(totalNs / acts)
	}

	return BasicMetricsSnapshot{
		Scheduled:           scheduled,
		Completed:           completed,
		Failed:              failed,
		Terminated:          terminated,
		InFlight:            scheduled - completed - failed - terminated,
		EventsRaised:        m.eventsRaised.Load(),
		ActivitiesCompleted: acts,
		AvgActivityDuration: avg,
	}
}

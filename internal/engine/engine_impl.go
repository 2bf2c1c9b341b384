package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/velhonen/orka/internal/persistence"
	"github.com/velhonen/orka/internal/taskqueue"
	"github.com/velhonen/orka/pkg/api"
)

// engineImpl is a single-process orchestration scheduler.
//
// Many instances execute concurrently, but each individual instance's
// history mutation and replay is serialized on a per-instance mutex: at
// most one active replay/append pass per instance at any time. History
// append order is therefore a total order per instance.
type engineImpl struct {
	instances persistence.InstanceStore
	history   persistence.HistoryStore
	queue     taskqueue.Queue
	registry  *registry
	observer  api.Observer

	locks sync.Map // instance id -> *sync.Mutex
}

// Config describes how to construct an engineImpl.
// Only used inside this package; external callers use the helper functions.
type Config struct {
	Persistence persistence.Persistence
	Queue       taskqueue.Queue
	Observer    api.Observer
}

// NewEngineWithConfig creates a new Engine using the given configuration.
func NewEngineWithConfig(cfg Config) api.Engine {
	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	q := cfg.Queue
	if q == nil {
		q = taskqueue.NewInMemoryQueue(0)
	}
	return &engineImpl{
		instances: cfg.Persistence.Instances,
		history:   cfg.Persistence.History,
		queue:     q,
		registry:  newRegistry(),
		observer:  obs,
	}
}

// NewEngine returns an Engine backed by the given stores and queue.
func NewEngine(p persistence.Persistence, q taskqueue.Queue) api.Engine {
	return NewEngineWithConfig(Config{Persistence: p, Queue: q})
}

// NewInMemoryEngine returns an Engine backed entirely by in-memory stores
// and the given queue. External users access this via orka.NewInMemoryEngine.
func NewInMemoryEngine(q taskqueue.Queue) api.Engine {
	mem := persistence.NewInMemoryStore()
	return NewEngine(persistence.Persistence{
		Instances: mem,
		History:   mem,
	}, q)
}

// NewInMemoryEngineWithObserver returns an in-memory Engine with the given Observer.
func NewInMemoryEngineWithObserver(q taskqueue.Queue, obs api.Observer) api.Engine {
	mem := persistence.NewInMemoryStore()
	return NewEngineWithConfig(Config{
		Persistence: persistence.Persistence{Instances: mem, History: mem},
		Queue:       q,
		Observer:    obs,
	})
}

// NewSQLiteEngine returns an Engine that persists instances and histories
// in a SQLite database and reads activity tasks from the given queue.
func NewSQLiteEngine(db *sql.DB, q taskqueue.Queue) (api.Engine, error) {
	return NewSQLiteEngineWithObserver(db, q, nil)
}

// NewSQLiteEngineWithObserver returns a SQLite-backed Engine with the given Observer.
func NewSQLiteEngineWithObserver(db *sql.DB, q taskqueue.Queue, obs api.Observer) (api.Engine, error) {
	inst, err := persistence.NewSQLiteInstanceStore(db)
	if err != nil {
		return nil, err
	}
	hist, err := persistence.NewSQLiteHistoryStore(db)
	if err != nil {
		return nil, err
	}
	return NewEngineWithConfig(Config{
		Persistence: persistence.Persistence{Instances: inst, History: hist},
		Queue:       q,
		Observer:    obs,
	}), nil
}

// Compile-time interface checks.
var (
	_ api.Engine       = (*engineImpl)(nil)
	_ api.ActivityHost = (*engineImpl)(nil)
)

func (e *engineImpl) RegisterOrchestrator(name string, fn api.OrchestratorFunc) error {
	return e.registry.RegisterOrchestrator(name, fn)
}

func (e *engineImpl) RegisterActivity(name string, fn api.ActivityFunc) error {
	return e.registry.RegisterActivity(name, fn)
}

func (e *engineImpl) Schedule(ctx context.Context, orchestratorName string, input any) (string, error) {
	fn, err := e.registry.Orchestrator(orchestratorName)
	if err != nil {
		return "", err
	}

	inst := &api.Instance{
		ID:        uuid.NewString(),
		Name:      orchestratorName,
		Status:    api.StatusPending,
		Input:     input,
		CreatedAt: time.Now(),
	}
	if err := e.instances.SaveInstance(inst); err != nil {
		return "", err
	}
	e.observer.OnOrchestrationScheduled(ctx, inst)

	mu := e.lock(inst.ID)
	defer func() { e.unlock(inst.ID, mu, inst) }()

	if _, err := e.history.AppendEvents(ctx, inst.ID, []api.HistoryEvent{{
		Type:             api.EventOrchestratorStarted,
		OrchestratorName: orchestratorName,
		Input:            input,
	}}); err != nil {
		return "", err
	}

	// First replay pass. Orchestration-level failures are recorded in the
	// instance and reported via GetStatus; Schedule itself only fails on
	// infrastructure errors.
	if err := e.resumeLocked(ctx, inst, fn); err != nil {
		return inst.ID, err
	}
	return inst.ID, nil
}

func (e *engineImpl) RaiseEvent(ctx context.Context, instanceID, eventName string, payload any) error {
	if eventName == "" {
		return api.NewValidationError("event name is required")
	}

	mu := e.lock(instanceID)
	inst, err := e.getInstance(instanceID)
	defer func() { e.unlock(instanceID, mu, inst) }()
	if err != nil {
		return err
	}
	if inst.Status.IsTerminal() {
		return fmt.Errorf("cannot raise event %q on instance %s in status %s: %w",
			eventName, instanceID, inst.Status, api.ErrTerminal)
	}

	fn, err := e.registry.Orchestrator(inst.Name)
	if err != nil {
		return err
	}

	if _, err := e.history.AppendEvents(ctx, instanceID, []api.HistoryEvent{{
		Type:      api.EventExternalRaised,
		EventName: eventName,
		Input:     payload,
	}}); err != nil {
		return err
	}
	e.observer.OnEventRaised(ctx, inst, eventName)

	// Resumes a matching pending wait if there is one; otherwise the
	// replay reproduces the same pending set and the payload stays
	// buffered in history.
	return e.resumeLocked(ctx, inst, fn)
}

func (e *engineImpl) GetStatus(ctx context.Context, instanceID string, includePayloads bool) (*api.InstanceStatus, error) {
	inst, err := e.getInstance(instanceID)
	if err != nil {
		return nil, err
	}

	st := &api.InstanceStatus{
		InstanceID: inst.ID,
		Name:       inst.Name,
		Status:     inst.Status,
		CreatedAt:  inst.CreatedAt,
	}
	if inst.Err != nil {
		st.Error = inst.Err.Error()
	}
	if includePayloads {
		st.Input = inst.Input
		st.Output = inst.Output
	}
	return st, nil
}

func (e *engineImpl) Terminate(ctx context.Context, instanceID string) error {
	mu := e.lock(instanceID)
	inst, err := e.getInstance(instanceID)
	defer func() { e.unlock(instanceID, mu, inst) }()
	if err != nil {
		return err
	}
	if inst.Status.IsTerminal() {
		return fmt.Errorf("cannot terminate instance %s in status %s: %w",
			instanceID, inst.Status, api.ErrTerminal)
	}

	if _, err := e.history.AppendEvents(ctx, instanceID, []api.HistoryEvent{{
		Type:   api.EventExecutionCompleted,
		Status: api.StatusTerminated,
	}}); err != nil {
		return err
	}

	inst.Status = api.StatusTerminated
	if err := e.instances.UpdateInstance(inst); err != nil {
		return err
	}
	e.observer.OnOrchestrationTerminated(ctx, inst)
	return nil
}

func (e *engineImpl) GetInstance(ctx context.Context, id string) (*api.Instance, error) {
	return e.getInstance(id)
}

func (e *engineImpl) ListInstances(ctx context.Context, opts api.InstanceListOptions) ([]*api.Instance, error) {
	filter := persistence.InstanceFilter{
		OrchestratorName: opts.OrchestratorName,
		Status:           opts.Status,
	}
	return e.instances.ListInstances(filter)
}

func (e *engineImpl) ListHistory(ctx context.Context, instanceID string) ([]api.HistoryEvent, error) {
	if _, err := e.getInstance(instanceID); err != nil {
		return nil, err
	}
	return e.history.ListEvents(ctx, instanceID)
}

// ActivityFunc implements api.ActivityHost.
func (e *engineImpl) ActivityFunc(name string) (api.ActivityFunc, error) {
	return e.registry.Activity(name)
}

// CompleteActivity implements api.ActivityHost. It appends the task outcome
// and resumes the instance. Outcomes arriving after the instance reached a
// terminal state are recorded in history but never resume execution.
func (e *engineImpl) CompleteActivity(ctx context.Context, instanceID string, taskID int64, result any, actErr error) error {
	mu := e.lock(instanceID)
	inst, err := e.getInstance(instanceID)
	defer func() { e.unlock(instanceID, mu, inst) }()
	if err != nil {
		return err
	}

	ev := api.HistoryEvent{Type: api.EventTaskCompleted, TaskID: taskID, Result: result}
	if actErr != nil {
		ev = api.HistoryEvent{Type: api.EventTaskFailed, TaskID: taskID, Error: actErr.Error()}
	}

	if _, err := e.history.AppendEvents(ctx, instanceID, []api.HistoryEvent{ev}); err != nil {
		return err
	}

	if inst.Status.IsTerminal() {
		return nil
	}

	fn, err := e.registry.Orchestrator(inst.Name)
	if err != nil {
		return err
	}
	return e.resumeLocked(ctx, inst, fn)
}

// resumeLocked runs one replay pass for inst. The caller must hold the
// instance lock.
func (e *engineImpl) resumeLocked(ctx context.Context, inst *api.Instance, fn api.OrchestratorFunc) error {
	inst.Status = api.StatusRunning
	if err := e.instances.UpdateInstance(inst); err != nil {
		return err
	}

	hist, err := e.history.ListEvents(ctx, inst.ID)
	if err != nil {
		return err
	}

	res := api.Execute(fn, hist)

	// Persist decisions first made during this pass and dispatch the
	// corresponding activity tasks. Replayed decisions never reach this
	// point, which is what keeps dispatch at-most-once per task id.
	if len(res.NewEvents) > 0 {
		stamped, err := e.history.AppendEvents(ctx, inst.ID, res.NewEvents)
		if err != nil {
			return err
		}
		for _, ev := range stamped {
			if ev.Type != api.EventTaskScheduled {
				continue
			}
			if err := e.queue.Enqueue(ctx, taskqueue.Task{
				ID:           uuid.NewString(),
				InstanceID:   inst.ID,
				TaskID:       ev.TaskID,
				ActivityName: ev.ActivityName,
				Input:        ev.Input,
				EnqueuedAt:   time.Now(),
			}); err != nil {
				return err
			}
		}
	}

	if !res.Completed {
		inst.Status = api.StatusSuspended
		return e.instances.UpdateInstance(inst)
	}

	if res.Err != nil {
		if _, err := e.history.AppendEvents(ctx, inst.ID, []api.HistoryEvent{{
			Type:   api.EventExecutionCompleted,
			Status: api.StatusFailed,
			Error:  res.Err.Error(),
		}}); err != nil {
			return err
		}
		inst.Status = api.StatusFailed
		inst.Err = res.Err
		if err := e.instances.UpdateInstance(inst); err != nil {
			return err
		}
		e.observer.OnOrchestrationFailed(ctx, inst, res.Err)
		return nil
	}

	if _, err := e.history.AppendEvents(ctx, inst.ID, []api.HistoryEvent{{
		Type:   api.EventExecutionCompleted,
		Status: api.StatusCompleted,
		Result: res.Output,
	}}); err != nil {
		return err
	}
	inst.Status = api.StatusCompleted
	inst.Output = res.Output
	if err := e.instances.UpdateInstance(inst); err != nil {
		return err
	}
	e.observer.OnOrchestrationCompleted(ctx, inst)
	return nil
}

func (e *engineImpl) getInstance(id string) (*api.Instance, error) {
	inst, err := e.instances.GetInstance(id)
	if err != nil {
		if errors.Is(err, persistence.ErrInstanceNotFound) {
			return nil, fmt.Errorf("%w: %s", api.ErrNotFound, id)
		}
		return nil, err
	}
	return inst, nil
}

// lock acquires the per-instance mutex, creating the map entry on first
// use. unlock discards entries that no longer need serialization, so a
// waiter that acquired a discarded mutex re-checks the map and retries on
// the live entry.
func (e *engineImpl) lock(id string) *sync.Mutex {
	for {
		m, _ := e.locks.LoadOrStore(id, &sync.Mutex{})
		mu := m.(*sync.Mutex)
		mu.Lock()
		if cur, ok := e.locks.Load(id); ok && cur == m {
			return mu
		}
		mu.Unlock()
	}
}

// unlock releases the instance mutex acquired by lock. Entries for unknown
// ids and terminal instances are dropped so the map only tracks live
// instances; the drop must stay the last action before the release, with no
// state mutation in between.
func (e *engineImpl) unlock(id string, mu *sync.Mutex, inst *api.Instance) {
	if inst == nil || inst.Status.IsTerminal() {
		e.locks.Delete(id)
	}
	mu.Unlock()
}

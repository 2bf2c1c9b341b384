package worker

import (
	"context"
	"time"

	"github.com/velhonen/orka/internal/taskqueue"
	"github.com/velhonen/orka/pkg/api"
)

// Dispatcher pulls activity tasks from a Queue and executes them against an
// ActivityHost. Several dispatchers may consume the same queue concurrently;
// each task is claimed by exactly one of them.
type Dispatcher struct {
	host     api.ActivityHost
	queue    taskqueue.Queue
	observer api.Observer
}

// New creates a new Dispatcher.
func New(host api.ActivityHost, queue taskqueue.Queue) *Dispatcher {
	return NewWithObserver(host, queue, nil)
}

// NewWithObserver creates a Dispatcher that reports activity lifecycle
// events to the given Observer.
func NewWithObserver(host api.ActivityHost, queue taskqueue.Queue, obs api.Observer) *Dispatcher {
	if obs == nil {
		obs = api.NoopObserver{}
	}
	return &Dispatcher{
		host:     host,
		queue:    queue,
		observer: obs,
	}
}

// ProcessOne pulls a single task from the queue and executes it.
// Returns (processed, error):
//   - processed == false: no task was obtained (ctx cancelled or dequeue error)
//   - processed == true: a task was executed and its outcome delivered; err
//     reports a delivery failure, not an activity failure. Activity failures
//     are recorded in the instance history instead.
func (d *Dispatcher) ProcessOne(ctx context.Context) (bool, error) {
	task, err := d.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}

	result, actErr := d.execute(ctx, task)
	if err := d.host.CompleteActivity(ctx, task.InstanceID, task.TaskID, result, actErr); err != nil {
		return true, err
	}
	return true, nil
}

// Run processes tasks until ctx is cancelled. Delivery errors are reported
// to the returned channel by the caller's choice of wrapper; here they stop
// the loop so the caller can decide whether to restart.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		if _, err := d.ProcessOne(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

func (d *Dispatcher) execute(ctx context.Context, task *taskqueue.Task) (any, error) {
	fn, err := d.host.ActivityFunc(task.ActivityName)
	if err != nil {
		// Unknown activity: fail the task rather than the dispatcher, so
		// the orchestrator sees the failure on its next replay.
		return nil, err
	}

	d.observer.OnActivityStart(ctx, task.InstanceID, task.ActivityName, task.TaskID)
	start := time.Now()
	result, actErr := fn(ctx, task.Input)
	d.observer.OnActivityCompleted(ctx, task.InstanceID, task.ActivityName, task.TaskID, actErr, time.Since(start))
	return result, actErr
}

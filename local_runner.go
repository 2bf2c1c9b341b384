package orka

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/velhonen/orka/internal/engine"
	"github.com/velhonen/orka/internal/taskqueue"
	"github.com/velhonen/orka/pkg/worker"
)

// LocalRunner bundles an in-memory Engine, an in-memory activity task queue,
// and a Dispatcher to provide a simple "local runner" for development and
// debugging.
//
// Typical usage:
//
//	runner := orka.NewLocalRunner()
//	_ = runner.Engine.RegisterOrchestrator("my-orch", myOrch)
//	_ = runner.Engine.RegisterActivity("my-activity", myActivity)
//
//	_ = runner.StartDispatchers(ctx, 2)
//	id, _ := runner.Engine.Schedule(ctx, "my-orch", input)
//	st, _ := runner.WaitForCompletion(ctx, id, time.Second)
//	runner.Stop()
type LocalRunner struct {
	// Engine is the in-memory orchestration engine used by this runner.
	Engine Engine

	// Queue is the in-memory task queue the Dispatcher consumes.
	Queue taskqueue.Queue

	// Dispatcher executes activity tasks from Queue against Engine.
	Dispatcher *worker.Dispatcher

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewLocalRunner constructs a LocalRunner backed by an in-memory engine,
// in-memory queue, and a single Dispatcher.
//
// This is intended for local development, tests, and simple single-process
// deployments.
func NewLocalRunner() *LocalRunner {
	return NewLocalRunnerWithObserver(nil)
}

// NewLocalRunnerWithObserver is NewLocalRunner with an Observer attached to
// both the engine and the dispatcher.
func NewLocalRunnerWithObserver(obs Observer) *LocalRunner {
	q := taskqueue.NewInMemoryQueue(1024)
	eng := engine.NewInMemoryEngineWithObserver(q, obs)
	d := worker.NewWithObserver(eng.(ActivityHost), q, obs)

	return &LocalRunner{
		Engine:     eng,
		Queue:      q,
		Dispatcher: d,
	}
}

// StartDispatchers starts 'concurrency' dispatcher goroutines that
// continuously call Dispatcher.ProcessOne(ctx) until the context is
// cancelled via Stop.
//
// If StartDispatchers is called more than once without Stop, it returns an error.
func (r *LocalRunner) StartDispatchers(ctx context.Context, concurrency int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("orka: LocalRunner already started")
	}

	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer r.wg.Done()

			for {
				processed, err := r.Dispatcher.ProcessOne(ctx)
				if err != nil {
					// For local runner we treat cancellation as a clean shutdown signal.
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return
					}
					// For other errors, log and keep going so a single bad task
					// doesn't kill the dispatcher loop.
					log.Printf("orka: local runner dispatcher error: %v", err)
					continue
				}
				if !processed {
					continue
				}
			}
		}()
	}

	return nil
}

// Stop cancels all dispatcher goroutines started by StartDispatchers and
// waits for them to exit.
func (r *LocalRunner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// WaitForCompletion polls the instance status until it reaches a terminal
// state or ctx expires. pollInterval <= 0 defaults to 10ms.
func (r *LocalRunner) WaitForCompletion(ctx context.Context, instanceID string, pollInterval time.Duration) (*InstanceStatus, error) {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		st, err := r.Engine.GetStatus(ctx, instanceID, true)
		if err != nil {
			return nil, err
		}
		if st.Status.IsTerminal() {
			return st, nil
		}

		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

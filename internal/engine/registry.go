package engine

import (
	"sync"

	"github.com/velhonen/orka/pkg/api"
)

// registry holds the orchestrator and activity functions known to an
// engine. Functions are code, not data: they cannot be persisted and must
// be re-registered on every process start before resuming instances.
type registry struct {
	mu            sync.RWMutex
	orchestrators map[string]api.OrchestratorFunc
	activities    map[string]api.ActivityFunc
}

func newRegistry() *registry {
	return &registry{
		orchestrators: make(map[string]api.OrchestratorFunc),
		activities:    make(map[string]api.ActivityFunc),
	}
}

func (r *registry) RegisterOrchestrator(name string, fn api.OrchestratorFunc) error {
	if name == "" {
		return api.NewValidationError("orchestrator name is required")
	}
	if fn == nil {
		return api.NewValidationError("orchestrator %q has nil function", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orchestrators[name]; exists {
		return api.NewValidationError("orchestrator already registered: %s", name)
	}
	r.orchestrators[name] = fn
	return nil
}

func (r *registry) RegisterActivity(name string, fn api.ActivityFunc) error {
	if name == "" {
		return api.NewValidationError("activity name is required")
	}
	if fn == nil {
		return api.NewValidationError("activity %q has nil function", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.activities[name]; exists {
		return api.NewValidationError("activity already registered: %s", name)
	}
	r.activities[name] = fn
	return nil
}

func (r *registry) Orchestrator(name string) (api.OrchestratorFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.orchestrators[name]
	if !ok {
		return nil, api.NewValidationError("unknown orchestrator: %s", name)
	}
	return fn, nil
}

func (r *registry) Activity(name string) (api.ActivityFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.activities[name]
	if !ok {
		return nil, api.NewValidationError("unknown activity: %s", name)
	}
	return fn, nil
}

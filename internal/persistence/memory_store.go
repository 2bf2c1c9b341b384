package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/velhonen/orka/pkg/api"
)

// InMemoryStore is a simple, goroutine-safe implementation of
// InstanceStore and HistoryStore backed by maps. It is not durable and is
// best suited for tests and local development.
type InMemoryStore struct {
	mu        sync.RWMutex
	instances map[string]*api.Instance
	histories map[string][]api.HistoryEvent
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		instances: make(map[string]*api.Instance),
		histories: make(map[string][]api.HistoryEvent),
	}
}

// Ensure InMemoryStore implements the interfaces.
var _ InstanceStore = (*InMemoryStore)(nil)

var _ HistoryStore = (*InMemoryStore)(nil)

func (s *InMemoryStore) SaveInstance(inst *api.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *inst
	s.instances[inst.ID] = &copied
	return nil
}

func (s *InMemoryStore) UpdateInstance(inst *api.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instances[inst.ID]; !ok {
		return ErrInstanceNotFound
	}

	copied := *inst
	s.instances[inst.ID] = &copied
	return nil
}

func (s *InMemoryStore) GetInstance(id string) (*api.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instances[id]
	if !ok {
		return nil, ErrInstanceNotFound
	}

	copied := *inst
	return &copied, nil
}

func (s *InMemoryStore) ListInstances(filter InstanceFilter) ([]*api.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*api.Instance

	for _, inst := range s.instances {
		if filter.OrchestratorName != "" && inst.Name != filter.OrchestratorName {
			continue
		}
		if filter.Status != "" && inst.Status != filter.Status {
			continue
		}
		copied := *inst
		result = append(result, &copied)
	}

	return result, nil
}

func (s *InMemoryStore) AppendEvents(ctx context.Context, instanceID string, events []api.HistoryEvent) ([]api.HistoryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.histories[instanceID]
	next := int64(len(history)) + 1

	stamped := make([]api.HistoryEvent, 0, len(events))
	now := time.Now()
	for i, ev := range events {
		ev.InstanceID = instanceID
		ev.Sequence = next + int64(i)
		if ev.At.IsZero() {
			ev.At = now
		}
		stamped = append(stamped, ev)
	}

	s.histories[instanceID] = append(history, stamped...)
	return stamped, nil
}

func (s *InMemoryStore) ListEvents(ctx context.Context, instanceID string) ([]api.HistoryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.histories[instanceID]
	out := make([]api.HistoryEvent, len(history))
	copy(out, history)
	return out, nil
}

package persistence

import (
	"context"
	"errors"

	"github.com/velhonen/orka/pkg/api"
)

var (
	// ErrInstanceNotFound is returned when an orchestration instance is
	// not found.
	ErrInstanceNotFound = errors.New("instance not found")
)

// InstanceFilter is used to select instances from the store.
// Empty string / zero status mean "no filter" for that field.
type InstanceFilter struct {
	OrchestratorName string
	Status           api.Status
}

// InstanceStore handles storage of the instance projection rows. The rows
// are a convenience view; the authoritative state lives in the history
// store.
type InstanceStore interface {
	SaveInstance(inst *api.Instance) error
	UpdateInstance(inst *api.Instance) error
	GetInstance(id string) (*api.Instance, error)
	ListInstances(filter InstanceFilter) ([]*api.Instance, error)
}

// HistoryStore is the append-only event log, keyed by instance id.
//
// AppendEvents stamps each event with the instance id, a timestamp, and the
// next sequence numbers, strictly increasing and gapless per instance,
// and appends the batch atomically. The engine serializes all appends for
// one instance, so implementations never see concurrent appends to the same
// history.
type HistoryStore interface {
	AppendEvents(ctx context.Context, instanceID string, events []api.HistoryEvent) ([]api.HistoryEvent, error)
	ListEvents(ctx context.Context, instanceID string) ([]api.HistoryEvent, error)
}

// Persistence bundles the store interfaces so the engine can depend on a
// single abstraction.
type Persistence struct {
	Instances InstanceStore
	History   HistoryStore
}

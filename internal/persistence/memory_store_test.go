package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/velhonen/orka/pkg/api"
)

func TestInMemoryStoreSaveGetUpdate(t *testing.T) {
	s := NewInMemoryStore()

	inst := &api.Instance{
		ID:        "i1",
		Name:      "orch",
		Status:    api.StatusPending,
		Input:     "payload",
		CreatedAt: time.Now(),
	}
	if err := s.SaveInstance(inst); err != nil {
		t.Fatalf("SaveInstance failed: %v", err)
	}

	got, err := s.GetInstance("i1")
	if err != nil {
		t.Fatalf("GetInstance failed: %v", err)
	}
	if got.Name != "orch" || got.Status != api.StatusPending || got.Input != "payload" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}

	inst.Status = api.StatusCompleted
	inst.Output = 42
	if err := s.UpdateInstance(inst); err != nil {
		t.Fatalf("UpdateInstance failed: %v", err)
	}

	got, err = s.GetInstance("i1")
	if err != nil {
		t.Fatalf("GetInstance failed: %v", err)
	}
	if got.Status != api.StatusCompleted || got.Output != 42 {
		t.Fatalf("update not visible: %+v", got)
	}
}

func TestInMemoryStoreNotFound(t *testing.T) {
	s := NewInMemoryStore()

	if _, err := s.GetInstance("missing"); !errors.Is(err, ErrInstanceNotFound) {
		t.Fatalf("expected ErrInstanceNotFound, got %v", err)
	}
	if err := s.UpdateInstance(&api.Instance{ID: "missing"}); !errors.Is(err, ErrInstanceNotFound) {
		t.Fatalf("update of unknown id must fail, got %v", err)
	}
}

func TestInMemoryStoreReturnsCopies(t *testing.T) {
	s := NewInMemoryStore()

	inst := &api.Instance{ID: "i1", Name: "orch", Status: api.StatusRunning}
	if err := s.SaveInstance(inst); err != nil {
		t.Fatalf("SaveInstance failed: %v", err)
	}

	// Mutating the fetched copy must not leak into the store.
	got, _ := s.GetInstance("i1")
	got.Status = api.StatusFailed

	again, _ := s.GetInstance("i1")
	if again.Status != api.StatusRunning {
		t.Fatalf("store state mutated through returned pointer: %s", again.Status)
	}
}

func TestInMemoryStoreListFilters(t *testing.T) {
	s := NewInMemoryStore()

	seed := []*api.Instance{
		{ID: "a", Name: "orders", Status: api.StatusRunning},
		{ID: "b", Name: "orders", Status: api.StatusCompleted},
		{ID: "c", Name: "billing", Status: api.StatusCompleted},
	}
	for _, inst := range seed {
		if err := s.SaveInstance(inst); err != nil {
			t.Fatalf("SaveInstance failed: %v", err)
		}
	}

	all, err := s.ListInstances(InstanceFilter{})
	if err != nil {
		t.Fatalf("ListInstances failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3, got %d", len(all))
	}

	orders, _ := s.ListInstances(InstanceFilter{OrchestratorName: "orders"})
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders instances, got %d", len(orders))
	}

	completedOrders, _ := s.ListInstances(InstanceFilter{OrchestratorName: "orders", Status: api.StatusCompleted})
	if len(completedOrders) != 1 || completedOrders[0].ID != "b" {
		t.Fatalf("combined filter wrong: %+v", completedOrders)
	}
}

func TestInMemoryStoreAppendStampsSequences(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	first, err := s.AppendEvents(ctx, "i1", []api.HistoryEvent{
		{Type: api.EventOrchestratorStarted, OrchestratorName: "orch"},
		{Type: api.EventTaskScheduled, TaskID: 0, ActivityName: "a"},
	})
	if err != nil {
		t.Fatalf("AppendEvents failed: %v", err)
	}
	if first[0].Sequence != 1 || first[1].Sequence != 2 {
		t.Fatalf("batch stamping wrong: %d, %d", first[0].Sequence, first[1].Sequence)
	}
	if first[0].InstanceID != "i1" {
		t.Fatalf("instance id not stamped")
	}
	if first[0].At.IsZero() {
		t.Fatalf("timestamp not stamped")
	}

	second, err := s.AppendEvents(ctx, "i1", []api.HistoryEvent{
		{Type: api.EventTaskCompleted, TaskID: 0, Result: "r"},
	})
	if err != nil {
		t.Fatalf("AppendEvents failed: %v", err)
	}
	if second[0].Sequence != 3 {
		t.Fatalf("sequences must continue across batches, got %d", second[0].Sequence)
	}

	events, err := s.ListEvents(ctx, "i1")
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.Sequence != int64(i)+1 {
			t.Fatalf("gap at %d: %d", i, ev.Sequence)
		}
	}
}

func TestInMemoryStoreHistoriesAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	if _, err := s.AppendEvents(ctx, "a", []api.HistoryEvent{{Type: api.EventOrchestratorStarted}}); err != nil {
		t.Fatalf("AppendEvents failed: %v", err)
	}
	stamped, err := s.AppendEvents(ctx, "b", []api.HistoryEvent{{Type: api.EventOrchestratorStarted}})
	if err != nil {
		t.Fatalf("AppendEvents failed: %v", err)
	}
	if stamped[0].Sequence != 1 {
		t.Fatalf("per-instance sequences must start at 1, got %d", stamped[0].Sequence)
	}
}

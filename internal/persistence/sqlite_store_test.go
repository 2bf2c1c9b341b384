package persistence

import (
	"database/sql"
	"encoding/gob"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/velhonen/orka/pkg/api"
)

type samplePayload struct {
	Msg string
	N   int
}

func init() {
	gob.Register(samplePayload{})
}

func newTestSQLiteStore(t *testing.T) *SQLiteInstanceStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	store, err := NewSQLiteInstanceStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteInstanceStore failed: %v", err)
	}
	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)

	created := time.Now().Truncate(time.Millisecond)
	inst := &api.Instance{
		ID:        "i1",
		Name:      "orders",
		Status:    api.StatusRunning,
		Input:     samplePayload{Msg: "hi", N: 7},
		CreatedAt: created,
	}
	if err := store.SaveInstance(inst); err != nil {
		t.Fatalf("SaveInstance failed: %v", err)
	}

	got, err := store.GetInstance("i1")
	if err != nil {
		t.Fatalf("GetInstance failed: %v", err)
	}
	if got.Name != "orders" || got.Status != api.StatusRunning {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	payload, ok := got.Input.(samplePayload)
	if !ok || payload.Msg != "hi" || payload.N != 7 {
		t.Fatalf("input payload mismatch: %#v", got.Input)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at mismatch: %s vs %s", got.CreatedAt, created)
	}
}

func TestSQLiteStoreUpdateAndError(t *testing.T) {
	store := newTestSQLiteStore(t)

	inst := &api.Instance{ID: "i1", Name: "orders", Status: api.StatusRunning, CreatedAt: time.Now()}
	if err := store.SaveInstance(inst); err != nil {
		t.Fatalf("SaveInstance failed: %v", err)
	}

	inst.Status = api.StatusFailed
	inst.Err = errors.New("charge declined")
	if err := store.UpdateInstance(inst); err != nil {
		t.Fatalf("UpdateInstance failed: %v", err)
	}

	got, err := store.GetInstance("i1")
	if err != nil {
		t.Fatalf("GetInstance failed: %v", err)
	}
	if got.Status != api.StatusFailed {
		t.Fatalf("status not updated: %s", got.Status)
	}
	if got.Err == nil || got.Err.Error() != "charge declined" {
		t.Fatalf("error not persisted: %v", got.Err)
	}
}

func TestSQLiteStoreNotFound(t *testing.T) {
	store := newTestSQLiteStore(t)

	if _, err := store.GetInstance("missing"); !errors.Is(err, ErrInstanceNotFound) {
		t.Fatalf("expected ErrInstanceNotFound, got %v", err)
	}
	err := store.UpdateInstance(&api.Instance{ID: "missing", Status: api.StatusRunning})
	if !errors.Is(err, ErrInstanceNotFound) {
		t.Fatalf("update of unknown id: expected ErrInstanceNotFound, got %v", err)
	}
}

func TestSQLiteStoreListFilters(t *testing.T) {
	store := newTestSQLiteStore(t)

	seed := []*api.Instance{
		{ID: "a", Name: "orders", Status: api.StatusRunning, CreatedAt: time.Now()},
		{ID: "b", Name: "orders", Status: api.StatusCompleted, CreatedAt: time.Now()},
		{ID: "c", Name: "billing", Status: api.StatusCompleted, CreatedAt: time.Now()},
	}
	for _, inst := range seed {
		if err := store.SaveInstance(inst); err != nil {
			t.Fatalf("SaveInstance failed: %v", err)
		}
	}

	all, err := store.ListInstances(InstanceFilter{})
	if err != nil {
		t.Fatalf("ListInstances failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3, got %d", len(all))
	}

	completed, err := store.ListInstances(InstanceFilter{Status: api.StatusCompleted})
	if err != nil {
		t.Fatalf("ListInstances failed: %v", err)
	}
	if len(completed) != 2 {
		t.Fatalf("expected 2 completed, got %d", len(completed))
	}

	both, err := store.ListInstances(InstanceFilter{OrchestratorName: "billing", Status: api.StatusCompleted})
	if err != nil {
		t.Fatalf("ListInstances failed: %v", err)
	}
	if len(both) != 1 || both[0].ID != "c" {
		t.Fatalf("combined filter wrong: %+v", both)
	}
}

package orka

import (
	"database/sql"

	"github.com/velhonen/orka/internal/engine"
	"github.com/velhonen/orka/internal/taskqueue"
	workerpkg "github.com/velhonen/orka/pkg/worker"
)

// DispatcherBundle wires together an Engine, a durable activity task queue,
// and a Dispatcher that consumes tasks from that queue.
//
// For now, we only provide a SQLite-backed bundle.
type DispatcherBundle struct {
	Engine     Engine
	Dispatcher *workerpkg.Dispatcher

	// queue is kept unexported for now; it is primarily useful for internal
	// inspection and tests. The public API focuses on Engine and Dispatcher.
	queue taskqueue.Queue
}

// NewSQLiteBundle constructs a durable Engine + Queue + Dispatcher combo
// sharing the same SQLite database. Instances, histories and queued activity
// tasks are persisted in the provided *sql.DB, so an instance suspended when
// the process dies resumes once its pending activity outcomes arrive after
// restart.
//
// Typical usage:
//
//	db, _ := sql.Open("sqlite", "file:orka.db?_journal=WAL")
//	bundle, err := orka.NewSQLiteBundle(db)
//	// register orchestrators and activities on bundle.Engine
//	// run bundle.Dispatcher in one or more goroutines
func NewSQLiteBundle(db *sql.DB) (*DispatcherBundle, error) {
	return NewSQLiteBundleWithObserver(db, nil)
}

// NewSQLiteBundleWithObserver is NewSQLiteBundle with an Observer attached
// to both the engine and the dispatcher.
func NewSQLiteBundleWithObserver(db *sql.DB, obs Observer) (*DispatcherBundle, error) {
	q, err := taskqueue.NewSQLiteQueue(db)
	if err != nil {
		return nil, err
	}

	eng, err := engine.NewSQLiteEngineWithObserver(db, q, obs)
	if err != nil {
		return nil, err
	}

	d := workerpkg.NewWithObserver(eng.(ActivityHost), q, obs)

	return &DispatcherBundle{
		Engine:     eng,
		Dispatcher: d,
		queue:      q,
	}, nil
}

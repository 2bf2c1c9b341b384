package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/velhonen/orka/pkg/api"
)

// SQLiteHistoryStore stores instance event histories in SQLite.
//
// Sequence numbers are assigned at append time from the current history
// length, inside a transaction, which keeps them gapless per instance. The
// engine serializes appends per instance, so two transactions never race on
// the same history.
type SQLiteHistoryStore struct {
	db *sql.DB
}

// Ensure SQLiteHistoryStore implements the interface.
var _ HistoryStore = (*SQLiteHistoryStore)(nil)

func NewSQLiteHistoryStore(db *sql.DB) (*SQLiteHistoryStore, error) {
	s := &SQLiteHistoryStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteHistoryStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS history_events (
			instance_id TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			type TEXT NOT NULL,
			at INTEGER NOT NULL,
			orchestrator_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			task_id INTEGER NOT NULL DEFAULT 0,
			activity_name TEXT NOT NULL DEFAULT '',
			event_name TEXT NOT NULL DEFAULT '',
			input BLOB,
			result BLOB,
			error TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (instance_id, sequence)
		);
	`)
	return err
}

func (s *SQLiteHistoryStore) AppendEvents(ctx context.Context, instanceID string, events []api.HistoryEvent) ([]api.HistoryEvent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var count int64
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM history_events WHERE instance_id = ?`, instanceID,
	).Scan(&count); err != nil {
		return nil, err
	}

	stamped := make([]api.HistoryEvent, 0, len(events))
	now := time.Now()

	for i, ev := range events {
		ev.InstanceID = instanceID
		ev.Sequence = count + int64(i) + 1
		if ev.At.IsZero() {
			ev.At = now
		}

		input, err := EncodeValue(ev.Input)
		if err != nil {
			return nil, err
		}
		result, err := EncodeValue(ev.Result)
		if err != nil {
			return nil, err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO history_events
				(instance_id, sequence, type, at, orchestrator_name, status, task_id, activity_name, event_name, input, result, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.InstanceID,
			ev.Sequence,
			string(ev.Type),
			ev.At.UnixNano(),
			ev.OrchestratorName,
			string(ev.Status),
			ev.TaskID,
			ev.ActivityName,
			ev.EventName,
			input,
			result,
			ev.Error,
		); err != nil {
			return nil, err
		}

		stamped = append(stamped, ev)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return stamped, nil
}

func (s *SQLiteHistoryStore) ListEvents(ctx context.Context, instanceID string) ([]api.HistoryEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT instance_id, sequence, type, at, orchestrator_name, status, task_id, activity_name, event_name, input, result, error
		FROM history_events
		WHERE instance_id = ?
		ORDER BY sequence ASC`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.HistoryEvent
	for rows.Next() {
		var (
			ev     api.HistoryEvent
			typ    string
			atN    int64
			status string
			input  []byte
			result []byte
		)
		if err := rows.Scan(
			&ev.InstanceID, &ev.Sequence, &typ, &atN,
			&ev.OrchestratorName, &status, &ev.TaskID,
			&ev.ActivityName, &ev.EventName, &input, &result, &ev.Error,
		); err != nil {
			return nil, err
		}

		ev.Type = api.EventType(typ)
		ev.At = time.Unix(0, atN)
		ev.Status = api.Status(status)

		if ev.Input, err = DecodeValue(input); err != nil {
			return nil, err
		}
		if ev.Result, err = DecodeValue(result); err != nil {
			return nil, err
		}

		out = append(out, ev)
	}
	return out, rows.Err()
}

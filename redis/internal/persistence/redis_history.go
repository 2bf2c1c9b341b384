package persistence

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	corep "github.com/velhonen/orka/internal/persistence"
	"github.com/velhonen/orka/pkg/api"
)

// RedisHistoryStore is a HistoryStore backed by a Redis list per instance:
//
//	<prefix>hist:<id> => LIST of gob-encoded redisHistoryPayload
//
// List position determines the sequence number, so RPUSH order is the
// append order. The engine serializes appends per instance, which makes
// the LLEN-then-RPUSH pair safe without a server-side script.
type RedisHistoryStore struct {
	client *redis.Client
	prefix string
}

var _ corep.HistoryStore = (*RedisHistoryStore)(nil)

type redisHistoryPayload struct {
	Sequence int64
	Type     string
	At       time.Time

	OrchestratorName string
	Status           string
	TaskID           int64
	ActivityName     string
	EventName        string

	Input  []byte
	Result []byte
	Error  string
}

// NewRedisHistoryStore creates a RedisHistoryStore.
// prefix is optional but recommended (e.g. "orka:").
func NewRedisHistoryStore(client *redis.Client, prefix string) *RedisHistoryStore {
	if prefix == "" {
		prefix = "orka:"
	}
	return &RedisHistoryStore{
		client: client,
		prefix: prefix,
	}
}

func (r *RedisHistoryStore) keyHistory(id string) string {
	return r.prefix + "hist:" + id
}

func (r *RedisHistoryStore) AppendEvents(ctx context.Context, instanceID string, events []api.HistoryEvent) ([]api.HistoryEvent, error) {
	if len(events) == 0 {
		return nil, nil
	}

	next, err := r.client.LLen(ctx, r.keyHistory(instanceID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	stamped := make([]api.HistoryEvent, len(events))
	values := make([]any, len(events))
	now := time.Now()
	for i, ev := range events {
		ev.InstanceID = instanceID
		ev.Sequence = next + int64(i) + 1
		ev.At = now
		stamped[i] = ev

		data, err := encodeHistoryPayload(ev)
		if err != nil {
			return nil, err
		}
		values[i] = data
	}

	if err := r.client.RPush(ctx, r.keyHistory(instanceID), values...).Err(); err != nil {
		return nil, err
	}
	return stamped, nil
}

func (r *RedisHistoryStore) ListEvents(ctx context.Context, instanceID string) ([]api.HistoryEvent, error) {
	raw, err := r.client.LRange(ctx, r.keyHistory(instanceID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []api.HistoryEvent{}, nil
		}
		return nil, err
	}

	events := make([]api.HistoryEvent, 0, len(raw))
	for i, item := range raw {
		ev, err := decodeHistoryPayload([]byte(item))
		if err != nil {
			return nil, err
		}
		ev.InstanceID = instanceID
		ev.Sequence = int64(i) + 1
		events = append(events, ev)
	}
	return events, nil
}

func encodeHistoryPayload(ev api.HistoryEvent) ([]byte, error) {
	inBytes, err := corep.EncodeValue(ev.Input)
	if err != nil {
		return nil, err
	}
	resBytes, err := corep.EncodeValue(ev.Result)
	if err != nil {
		return nil, err
	}

	payload := redisHistoryPayload{
		Sequence:         ev.Sequence,
		Type:             string(ev.Type),
		At:               ev.At,
		OrchestratorName: ev.OrchestratorName,
		Status:           string(ev.Status),
		TaskID:           ev.TaskID,
		ActivityName:     ev.ActivityName,
		EventName:        ev.EventName,
		Input:            inBytes,
		Result:           resBytes,
		Error:            ev.Error,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeHistoryPayload(data []byte) (api.HistoryEvent, error) {
	var payload redisHistoryPayload
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&payload); err != nil {
		return api.HistoryEvent{}, err
	}

	inVal, err := corep.DecodeValue(payload.Input)
	if err != nil {
		return api.HistoryEvent{}, err
	}
	resVal, err := corep.DecodeValue(payload.Result)
	if err != nil {
		return api.HistoryEvent{}, err
	}

	return api.HistoryEvent{
		Sequence:         payload.Sequence,
		Type:             api.EventType(payload.Type),
		At:               payload.At,
		OrchestratorName: payload.OrchestratorName,
		Status:           api.Status(payload.Status),
		TaskID:           payload.TaskID,
		ActivityName:     payload.ActivityName,
		EventName:        payload.EventName,
		Input:            inVal,
		Result:           resVal,
		Error:            payload.Error,
	}, nil
}

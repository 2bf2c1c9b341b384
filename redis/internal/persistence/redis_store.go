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

// RedisInstanceStore is an InstanceStore backed by Redis.
// It uses a simple key structure:
//
//	<prefix>inst:<id>              => gob-encoded redisInstancePayload
//	<prefix>idx:all                => SET of all instance IDs
//	<prefix>idx:orch:<name>        => SET of instance IDs for an orchestrator
//	<prefix>idx:status:<status>    => SET of instance IDs for a status
//
// The indexes are best-effort; they are always updated on Save/Update, and
// ListInstances re-filters by payload so stale index entries are harmless.
type RedisInstanceStore struct {
	client *redis.Client
	prefix string
}

var _ corep.InstanceStore = (*RedisInstanceStore)(nil)

type redisInstancePayload struct {
	ID           string
	Orchestrator string
	Status       string
	Input        []byte
	Output       []byte
	Error        string
	CreatedAt    time.Time
}

// NewRedisInstanceStore creates a RedisInstanceStore.
// prefix is optional but recommended (e.g. "orka:").
func NewRedisInstanceStore(client *redis.Client, prefix string) *RedisInstanceStore {
	if prefix == "" {
		prefix = "orka:"
	}
	return &RedisInstanceStore{
		client: client,
		prefix: prefix,
	}
}

func (r *RedisInstanceStore) keyInstance(id string) string {
	return r.prefix + "inst:" + id
}

func (r *RedisInstanceStore) keyAll() string {
	return r.prefix + "idx:all"
}

func (r *RedisInstanceStore) keyOrchestrator(name string) string {
	return r.prefix + "idx:orch:" + name
}

func (r *RedisInstanceStore) keyStatus(status api.Status) string {
	return r.prefix + "idx:status:" + string(status)
}

func (r *RedisInstanceStore) SaveInstance(inst *api.Instance) error {
	return r.writeInstance(inst)
}

func (r *RedisInstanceStore) UpdateInstance(inst *api.Instance) error {
	// Index updates just re-add; stale status entries may remain after a
	// transition, but ListInstances filters by payload.
	return r.writeInstance(inst)
}

func (r *RedisInstanceStore) writeInstance(inst *api.Instance) error {
	ctx := context.Background()

	data, err := encodeRedisPayload(inst)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.keyInstance(inst.ID), data, 0).Err(); err != nil {
		return err
	}

	// Index failures are not fatal.
	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, r.keyAll(), inst.ID)
	pipe.SAdd(ctx, r.keyOrchestrator(inst.Name), inst.ID)
	pipe.SAdd(ctx, r.keyStatus(inst.Status), inst.ID)
	_, _ = pipe.Exec(ctx)

	return nil
}

func (r *RedisInstanceStore) GetInstance(id string) (*api.Instance, error) {
	ctx := context.Background()

	data, err := r.client.Get(ctx, r.keyInstance(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, corep.ErrInstanceNotFound
		}
		return nil, err
	}
	return decodeRedisPayload(data)
}

func (r *RedisInstanceStore) ListInstances(filter corep.InstanceFilter) ([]*api.Instance, error) {
	ctx := context.Background()

	var ids []string
	var err error

	switch {
	case filter.OrchestratorName != "" && filter.Status != "":
		ids, err = r.client.SInter(ctx,
			r.keyOrchestrator(filter.OrchestratorName),
			r.keyStatus(filter.Status),
		).Result()
	case filter.OrchestratorName != "":
		ids, err = r.client.SMembers(ctx, r.keyOrchestrator(filter.OrchestratorName)).Result()
	case filter.Status != "":
		ids, err = r.client.SMembers(ctx, r.keyStatus(filter.Status)).Result()
	default:
		ids, err = r.client.SMembers(ctx, r.keyAll()).Result()
	}

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*api.Instance{}, nil
		}
		return nil, err
	}
	if len(ids) == 0 {
		return []*api.Instance{}, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, r.keyInstance(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	var instances []*api.Instance
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}
		inst, err := decodeRedisPayload(data)
		if err != nil {
			return nil, err
		}
		// Stale index entries: the payload is authoritative.
		if filter.OrchestratorName != "" && inst.Name != filter.OrchestratorName {
			continue
		}
		if filter.Status != "" && inst.Status != filter.Status {
			continue
		}
		instances = append(instances, inst)
	}

	return instances, nil
}

func decodeRedisPayload(data []byte) (*api.Instance, error) {
	if len(data) == 0 {
		return nil, corep.ErrInstanceNotFound
	}
	var payload redisInstancePayload
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&payload); err != nil {
		return nil, err
	}

	inVal, err := corep.DecodeValue(payload.Input)
	if err != nil {
		return nil, err
	}
	outVal, err := corep.DecodeValue(payload.Output)
	if err != nil {
		return nil, err
	}

	inst := &api.Instance{
		ID:        payload.ID,
		Name:      payload.Orchestrator,
		Status:    api.Status(payload.Status),
		Input:     inVal,
		Output:    outVal,
		CreatedAt: payload.CreatedAt,
	}
	if payload.Error != "" {
		inst.Err = errors.New(payload.Error)
	}

	return inst, nil
}

func encodeRedisPayload(inst *api.Instance) ([]byte, error) {
	inBytes, err := corep.EncodeValue(inst.Input)
	if err != nil {
		return nil, err
	}
	outBytes, err := corep.EncodeValue(inst.Output)
	if err != nil {
		return nil, err
	}

	errStr := ""
	if inst.Err != nil {
		errStr = inst.Err.Error()
	}

	payload := redisInstancePayload{
		ID:           inst.ID,
		Orchestrator: inst.Name,
		Status:       string(inst.Status),
		Input:        inBytes,
		Output:       outBytes,
		Error:        errStr,
		CreatedAt:    inst.CreatedAt,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"newsreader/internal/entity"
)

const defaultPrefix = "jobstatus:"

// casAttempts bounds optimistic-lock retries when another writer races
// the WATCHed key. Writers race only on the same job id, which the
// broker already serializes, so contention is rare.
const casAttempts = 5

// RedisStore keeps one JSON record per prefixed key. Updates go through
// a WATCH transaction so the read-modify-write is atomic per key while
// writers on different job ids proceed independently.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, prefix: defaultPrefix}
}

func NewRedisStoreWithPrefix(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(jobID string) string {
	return s.prefix + jobID
}

func (s *RedisStore) Create(ctx context.Context, jobID string) error {
	data, err := json.Marshal(entity.Record{State: entity.StateQueued})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	set, err := s.client.SetNX(ctx, s.key(jobID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", entity.ErrInfrastructure, err)
	}
	if !set {
		return ErrExists
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, jobID string) (entity.Record, error) {
	data, err := s.client.Get(ctx, s.key(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entity.Record{}, ErrNotFound
	}
	if err != nil {
		return entity.Record{}, fmt.Errorf("%w: %v", entity.ErrInfrastructure, err)
	}
	var rec entity.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return entity.Record{}, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec, nil
}

func (s *RedisStore) Transition(ctx context.Context, jobID string, rec entity.Record) error {
	key := s.key(jobID)

	txn := func(tx *redis.Tx) error {
		var cur *entity.Record
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			cur = nil
		case err != nil:
			return err
		default:
			var r entity.Record
			if err := json.Unmarshal(data, &r); err != nil {
				return fmt.Errorf("unmarshal record: %w", err)
			}
			cur = &r
		}

		write, err := decide(cur, rec)
		if err != nil {
			return err
		}
		if !write {
			return nil
		}

		out, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < casAttempts; i++ {
		err = s.client.Watch(ctx, txn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrIllegalTransition) {
		return err
	}
	return fmt.Errorf("%w: %v", entity.ErrInfrastructure, err)
}

package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brunovmr/acai-delivery/internal/core/domain"
)

const (
	availabilityKeyPrefix = "availability:"
	idempotencyKeyTTL     = 24 * time.Hour
)

// RedisStore realizes the AvailabilityStore contract on Redis hashes, one
// hash per kind, and the IdempotencyGuard for order deduplication.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func availabilityKey(kind domain.Kind) string {
	return availabilityKeyPrefix + string(kind)
}

func (r *RedisStore) LoadAll(ctx context.Context, kind domain.Kind) (domain.AvailabilityMap, error) {
	raw, err := r.client.HGetAll(ctx, availabilityKey(kind)).Result()
	if err != nil {
		return nil, err
	}
	out := make(domain.AvailabilityMap, len(raw))
	for k, v := range raw {
		out[k] = v == "1"
	}
	return out, nil
}

func (r *RedisStore) SaveBulk(ctx context.Context, kind domain.Kind, patch domain.AvailabilityMap, actor string) error {
	fields := make(map[string]interface{}, len(patch))
	for k, v := range patch {
		if v {
			fields[k] = "1"
		} else {
			fields[k] = "0"
		}
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, availabilityKey(kind), fields)
	pipe.HSet(ctx, availabilityKey(kind)+":meta",
		"last_updated", time.Now().UTC().Format(time.RFC3339),
		"updated_by", actor,
	)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Clear(ctx context.Context, kind domain.Kind) error {
	return r.client.Del(ctx, availabilityKey(kind), availabilityKey(kind)+":meta").Err()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

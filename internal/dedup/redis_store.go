package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// dedupKeyPrefix namespaces dedup state in Redis.
// Format: autopilot:dedup:{strategy}:{symbol}:{action}
const dedupKeyPrefix = "autopilot:dedup"

// RedisStore persists dedup state in Redis with a TTL, so suppression state
// survives process restarts and is shared across instances.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(key string) string {
	return fmt.Sprintf("%s:%s", dedupKeyPrefix, key)
}

func (r *RedisStore) Get(ctx context.Context, key string) (*State, error) {
	data, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode dedup state %s: %w", key, err)
	}
	return &state, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, state State, ttl time.Duration) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode dedup state %s: %w", key, err)
	}

	if err := r.client.Set(ctx, redisKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"visamatch/internal/eligibility"
)

// RedisStore shares verdicts across instances. Keys of an older rule-set
// version are never read again and age out through their TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore returns a Redis-backed store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*eligibility.Result, bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get verdict: %w", err)
	}
	var res eligibility.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, false, fmt.Errorf("decode cached verdict: %w", err)
	}
	return &res, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, result *eligibility.Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode verdict: %w", err)
	}
	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set verdict: %w", err)
	}
	return nil
}

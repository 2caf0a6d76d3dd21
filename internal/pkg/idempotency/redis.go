package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "idempotency:"

// RedisStore shares reservations across API replicas.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Reserve(ctx context.Context, key string, ttl time.Duration) (Record, error) {
	k := redisPrefix + key

	// Two attempts cover the key expiring between SETNX and GET.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.client.SetNX(ctx, k, pendingMarker, ttl).Result()
		if err != nil {
			return Record{}, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if ok {
			return Record{Reserved: true}, nil
		}

		value, err := s.client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return Record{}, fmt.Errorf("read idempotency key: %w", err)
		}
		if value == pendingMarker {
			return Record{}, ErrInProgress
		}
		return Record{Result: value}, nil
	}
	return Record{}, ErrInProgress
}

func (s *RedisStore) Complete(ctx context.Context, key, result string, ttl time.Duration) error {
	return s.client.Set(ctx, redisPrefix+key, result, ttl).Err()
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisPrefix+key).Err()
}

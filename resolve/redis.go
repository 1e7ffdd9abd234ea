package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps resolved ids of a single provider in a Redis hash so they
// survive restarts. The hash has no expiry.
type RedisStore struct {
	Client *redis.Client
	Key    string
}

// NewRedisStore returns a store keeping ids of the named provider.
func NewRedisStore(client *redis.Client, provider string) *RedisStore {
	return &RedisStore{
		Client: client,
		Key:    KeyForProvider(provider),
	}
}

func KeyForProvider(provider string) string {
	// {...} keeps every name of a provider in one slot on Redis Cluster.
	return fmt.Sprintf("livewatch_resolved:{%s}", provider)
}

func (s *RedisStore) Get(c context.Context, name string) (string, bool, error) {
	if s == nil || s.Client == nil {
		return "", false, fmt.Errorf("nil redis client")
	}

	id, err := s.Client.HGet(c, s.Key, name).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis HGET %s %s: %w", s.Key, name, err)
	}

	return id, true, nil
}

func (s *RedisStore) Put(c context.Context, name, id string) error {
	if s == nil || s.Client == nil {
		return fmt.Errorf("nil redis client")
	}

	if err := s.Client.HSet(c, s.Key, name, id).Err(); err != nil {
		return fmt.Errorf("redis HSET %s %s: %w", s.Key, name, err)
	}

	return nil
}

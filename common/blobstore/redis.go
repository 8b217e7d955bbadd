package blobstore

import (
	"context"
	"fmt"

	rediscommon "github.com/lyzr/cdn/common/redis"
)

const redisKeyPrefix = "blob:"

// RedisStore keeps blobs in Redis with no expiry.
// Redis must be configured with persistence for this to count as durable.
type RedisStore struct {
	client *rediscommon.Client
}

// NewRedisStore creates a store over an already connected client
func NewRedisStore(client *rediscommon.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, found, err := s.client.GetBytes(ctx, redisKeyPrefix+key)
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, found, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, redisKeyPrefix+key, data, 0); err != nil {
		return fmt.Errorf("redis put %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the client is shared and closed by bootstrap
func (s *RedisStore) Close() error {
	return nil
}

package lti

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const nonceKeyPrefix = "lti:nonce:"

// RedisNonceStore keeps launch nonces in Redis with a bounded lifetime.
type RedisNonceStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisNonceStore wraps a Redis client. TTL defaults to one hour, the
// lifetime of a launch token.
func NewRedisNonceStore(client *redis.Client, ttl time.Duration) *RedisNonceStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisNonceStore{client: client, ttl: ttl}
}

// Remember records the nonce, reporting whether it was seen before.
func (s *RedisNonceStore) Remember(ctx context.Context, nonce string) (bool, error) {
	stored, err := s.client.SetNX(ctx, nonceKeyPrefix+nonce, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}
	return !stored, nil
}

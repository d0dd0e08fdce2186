package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTokenNotFound signals a missing or already-evicted token key.
var ErrTokenNotFound = errors.New("token not found")

// TokenStore is the namespaced key-value contract for opaque tokens.
// Expiry is enforced by the store natively; Set followed by ExpireAt is
// best-effort, not transactional.
type TokenStore interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	ExpireAt(ctx context.Context, key string, at time.Time) error
}

type redisTokenStore struct {
	client *redis.Client
}

// NewRedisTokenStore returns a Redis-backed implementation.
func NewRedisTokenStore(client *redis.Client) TokenStore {
	return &redisTokenStore{client: client}
}

func (s *redisTokenStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *redisTokenStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *redisTokenStore) ExpireAt(ctx context.Context, key string, at time.Time) error {
	return s.client.ExpireAt(ctx, key, at).Err()
}

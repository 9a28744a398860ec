// Package idempotency caches responses of retried mutating requests.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idempotency:"

// lockTTL caps how long an in-flight request can hold its key.
const lockTTL = 30 * time.Second

// CachedResponse is a stored response, replayed for repeated keys.
type CachedResponse struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	StatusCode int    `json:"status_code"`
	Body       []byte `json:"body"`
}

// Store keeps responses per user and key.
type Store interface {
	Get(ctx context.Context, userID uuid.UUID, key string) (*CachedResponse, error)
	Save(ctx context.Context, userID uuid.UUID, key string, resp CachedResponse) error
	// Acquire marks key as in flight. It returns false when another request holds it.
	Acquire(ctx context.Context, userID uuid.UUID, key string) (bool, error)
	Release(ctx context.Context, userID uuid.UUID, key string) error
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Key is the Redis key holding the cached response.
func Key(userID uuid.UUID, key string) string {
	return keyPrefix + userID.String() + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, userID uuid.UUID, key string) (*CachedResponse, error) {
	val, err := s.client.Get(ctx, Key(userID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}

	var resp CachedResponse
	if err := json.Unmarshal(val, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal cached response: %w", err)
	}
	return &resp, nil
}

func (s *RedisStore) Save(ctx context.Context, userID uuid.UUID, key string, resp CachedResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	return s.client.Set(ctx, Key(userID, key), data, s.ttl).Err()
}

func (s *RedisStore) Acquire(ctx context.Context, userID uuid.UUID, key string) (bool, error) {
	return s.client.SetNX(ctx, Key(userID, key)+":lock", "1", lockTTL).Result()
}

func (s *RedisStore) Release(ctx context.Context, userID uuid.UUID, key string) error {
	return s.client.Del(ctx, Key(userID, key)+":lock").Err()
}

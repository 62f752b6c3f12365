package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore keeps short-lived verification tokens. Production uses Redis;
// tests use the in-memory implementation.
type TokenStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns ErrInvalidToken when the key is missing or expired.
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
}

type redisTokenStore struct {
	rdb *redis.Client
}

// NewRedisTokenStore wraps a redis client as a TokenStore.
func NewRedisTokenStore(rdb *redis.Client) TokenStore {
	return &redisTokenStore{rdb: rdb}
}

func (s *redisTokenStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *redisTokenStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *redisTokenStore) Del(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

type memoryEntry struct {
	value   string
	expires time.Time
}

// MemoryTokenStore is a map-backed TokenStore for tests and local runs.
type MemoryTokenStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryTokenStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, expires: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryTokenStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || time.Now().After(e.expires) {
		delete(s.entries, key)
		return "", ErrInvalidToken
	}
	return e.value, nil
}

func (s *MemoryTokenStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Keys returns the live keys, letting tests recover issued tokens.
func (s *MemoryTokenStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	keys := make([]string, 0, len(s.entries))
	for k, e := range s.entries {
		if now.After(e.expires) {
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

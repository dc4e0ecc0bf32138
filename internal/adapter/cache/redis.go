package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

// KeyPrefix namespaces snapshot keys.
const KeyPrefix = "pgdev:cache:"

// RedisStore keeps snapshots in Redis with a TTL so stale structure expires.
type RedisStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

var _ domain.CacheStore = (*RedisStore)(nil)

// NewRedisStore constructs a RedisStore. ttl <= 0 keeps keys forever.
func NewRedisStore(rdb redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// Key is the Redis key of connection.
func Key(connection string) string { return KeyPrefix + connection }

// Get loads the snapshot of connection.
func (s *RedisStore) Get(ctx context.Context, connection string) (domain.DatabaseCache, error) {
	b, err := s.rdb.Get(ctx, Key(connection)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.DatabaseCache{}, fmt.Errorf("op=cache.get: %w: %s", domain.ErrNotFound, connection)
	}
	if err != nil {
		return domain.DatabaseCache{}, fmt.Errorf("op=cache.get: %w", err)
	}
	var c domain.DatabaseCache
	if err := json.Unmarshal(b, &c); err != nil {
		return domain.DatabaseCache{}, fmt.Errorf("op=cache.get: %w: %v", domain.ErrInvalidArgument, err)
	}
	return c, nil
}

// Put writes the snapshot and refreshes its TTL.
func (s *RedisStore) Put(ctx context.Context, c domain.DatabaseCache) error {
	if c.ConnectionName == "" {
		return fmt.Errorf("op=cache.put: %w: empty connection name", domain.ErrInvalidArgument)
	}
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("op=cache.put: %w", err)
	}
	if err := s.rdb.Set(ctx, Key(c.ConnectionName), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("op=cache.put: %w", err)
	}
	return nil
}

// Delete removes the snapshot.
func (s *RedisStore) Delete(ctx context.Context, connection string) error {
	if err := s.rdb.Del(ctx, Key(connection)).Err(); err != nil {
		return fmt.Errorf("op=cache.delete: %w", err)
	}
	return nil
}

// NoopStore keeps nothing. Every Get misses.
type NoopStore struct{}

func (NoopStore) Get(_ context.Context, connection string) (domain.DatabaseCache, error) {
	return domain.DatabaseCache{}, fmt.Errorf("op=cache.get: %w: %s", domain.ErrNotFound, connection)
}
func (NoopStore) Put(context.Context, domain.DatabaseCache) error { return nil }
func (NoopStore) Delete(context.Context, string) error            { return nil }

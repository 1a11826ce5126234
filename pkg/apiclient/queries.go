package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store persists cached query results as JSON.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// Queries caches read results by key so repeated reads skip the network
// until the key is invalidated or expires.
type Queries struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewQueries builds a query cache. A nil store disables caching.
func NewQueries(store Store, ttl time.Duration, logger *zap.Logger) *Queries {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queries{store: store, ttl: ttl, logger: logger}
}

// Fetch returns the cached value for key or loads, caches and returns it.
// Cache failures fall through to load.
func Fetch[T any](ctx context.Context, q *Queries, key string, load func(context.Context) (T, error)) (T, error) {
	if q == nil || q.store == nil {
		return load(ctx)
	}

	if raw, ok, err := q.store.Get(ctx, key); err != nil {
		q.logger.Warn("query cache get failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		q.logger.Warn("query cache entry unreadable", zap.String("key", key))
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if raw, err := json.Marshal(value); err == nil {
		if err := q.store.Set(ctx, key, raw, q.ttl); err != nil {
			q.logger.Warn("query cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return value, nil
}

// Invalidate drops every cached entry whose key starts with prefix.
func (q *Queries) Invalidate(ctx context.Context, prefix string) error {
	if q == nil || q.store == nil {
		return nil
	}
	if err := q.store.DeleteByPrefix(ctx, prefix); err != nil {
		q.logger.Warn("query cache invalidate failed", zap.String("prefix", prefix), zap.Error(err))
		return err
	}
	return nil
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// NewMemoryStore builds an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get returns a live entry.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if s.now().After(entry.expires) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores value until ttl elapses.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, expires: s.now().Add(ttl)}
	return nil
}

// DeleteByPrefix removes entries whose key starts with prefix.
func (s *MemoryStore) DeleteByPrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
	return nil
}

// RedisStore shares cached query results between processes.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisStore namespaces keys under namespace.
func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	if namespace == "" {
		namespace = "slotboard"
	}
	return &RedisStore{client: client, namespace: namespace}
}

func (s *RedisStore) key(k string) string {
	return s.namespace + ":" + k
}

// Get returns the stored bytes for key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, true, nil
}

// Set stores value with a TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// DeleteByPrefix scans and deletes keys under prefix.
func (s *RedisStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	iter := s.client.Scan(ctx, 0, s.key(prefix)+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan %s: %w", prefix, err)
	}
	return nil
}

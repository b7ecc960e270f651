package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Store is the TTL byte store behind the list cache. The memory store serves
// a single process; the redis store shares entries between replicas.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Cache is a keyed read-through cache with single-flight fills: concurrent
// requests for the same key share one upstream call instead of issuing
// duplicates. Mutating handlers invalidate their key explicitly.
type Cache struct {
	store Store
	ttl   time.Duration
	group singleflight.Group
}

func New(store Store, ttl time.Duration) *Cache {
	return &Cache{store: store, ttl: ttl}
}

// Key builds the cache key for one tenant's resource list.
func Key(tenantID, resource string) string {
	return tenantID + ":" + resource
}

// Fetch returns the cached value for key, filling it through fill on a miss.
// The second return reports whether the value came from the cache. A store
// read error falls through to fill rather than failing the request.
func (c *Cache) Fetch(ctx context.Context, key string, fill func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	if value, ok, err := c.store.Get(ctx, key); err == nil && ok {
		return value, true, nil
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A concurrent flight may have populated the store already.
		if value, ok, err := c.store.Get(ctx, key); err == nil && ok {
			return value, nil
		}
		value, err := fill(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.store.Set(ctx, key, value, c.ttl); err != nil {
			return value, nil
		}
		return value, nil
	})
	if err != nil {
		return nil, false, err
	}
	return result.([]byte), false, nil
}

// Invalidate drops a key after a mutation on the same resource.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	_ = c.store.Delete(ctx, key)
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

type memoryStore struct {
	entries sync.Map
}

// NewMemoryStore returns an in-process store with a background sweep for
// expired entries.
func NewMemoryStore() Store {
	s := &memoryStore{}
	go s.cleanup()
	return s
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	raw, ok := s.entries.Load(key)
	if !ok {
		return nil, false, nil
	}
	entry := raw.(memoryEntry)
	if time.Now().After(entry.expiresAt) {
		s.entries.Delete(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.entries.Store(key, memoryEntry{value: value, expiresAt: time.Now().Add(ttl)})
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.entries.Delete(key)
	return nil
}

func (s *memoryStore) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		s.entries.Range(func(key, raw interface{}) bool {
			if now.After(raw.(memoryEntry).expiresAt) {
				s.entries.Delete(key)
			}
			return true
		})
	}
}

type redisStore struct {
	client *redis.Client
}

// NewRedisStore returns a store backed by a shared redis instance so cache
// fills and invalidations are visible across gateway replicas.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, redisKey(key), value, ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisKey(key)).Err()
}

func redisKey(key string) string {
	return fmt.Sprintf("listcache:%s", key)
}

package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"yatube/internal/observability"

	"github.com/redis/go-redis/v9"
)

// PageCache stores rendered page bodies by request URI.
type PageCache interface {
	// Get returns the body and whether it was found.
	Get(ctx context.Context, requestURI string) ([]byte, bool, error)
	Set(ctx context.Context, requestURI string, body []byte, ttl time.Duration) error
	// Clear drops every cached page.
	Clear(ctx context.Context) error
}

// RedisPageCache keeps pages under PageKeyPrefix in Redis.
type RedisPageCache struct {
	rdb *redis.Client
}

// NewRedisPageCache wraps rdb.
func NewRedisPageCache(rdb *redis.Client) *RedisPageCache {
	return &RedisPageCache{rdb: rdb}
}

func (c *RedisPageCache) Get(ctx context.Context, requestURI string) ([]byte, bool, error) {
	key := PageKey(requestURI)
	ctx, span := observability.StartCacheSpan(ctx, "get", key)
	body, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.EndSpan(span, nil)
		return nil, false, nil
	}
	observability.EndSpan(span, err)
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}

func (c *RedisPageCache) Set(ctx context.Context, requestURI string, body []byte, ttl time.Duration) error {
	key := PageKey(requestURI)
	ctx, span := observability.StartCacheSpan(ctx, "set", key)
	err := c.rdb.Set(ctx, key, body, ttl).Err()
	observability.EndSpan(span, err)
	return err
}

func (c *RedisPageCache) Clear(ctx context.Context) error {
	ctx, span := observability.StartCacheSpan(ctx, "clear", PageKeyPrefix+"*")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	iter := c.rdb.Scan(ctx, 0, PageKeyPrefix+"*", 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err = c.rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err = iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		err = c.rdb.Del(ctx, batch...).Err()
	}
	return err
}

type memoryEntry struct {
	body    []byte
	expires time.Time
}

const (
	// DefaultMemoryEntries caps a MemoryPageCache.
	DefaultMemoryEntries = 300
	// memoryCullFraction: a full cache drops 1/memoryCullFraction of its entries.
	memoryCullFraction = 3
)

// MemoryPageCache is an in-process PageCache used when Redis is unavailable.
// It holds at most maxEntries pages.
type MemoryPageCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time
}

// NewMemoryPageCache returns an empty MemoryPageCache capped at DefaultMemoryEntries.
func NewMemoryPageCache() *MemoryPageCache {
	return NewMemoryPageCacheSize(DefaultMemoryEntries)
}

// NewMemoryPageCacheSize returns an empty MemoryPageCache holding at most size pages.
func NewMemoryPageCacheSize(size int) *MemoryPageCache {
	if size < 1 {
		size = DefaultMemoryEntries
	}
	return &MemoryPageCache{
		entries:    make(map[string]memoryEntry),
		maxEntries: size,
		now:        time.Now,
	}
}

// Len reports how many entries are held, expired ones included.
func (c *MemoryPageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// evict drops expired entries and, if the cache is still full, culls a
// fraction of the rest. Callers hold mu.
func (c *MemoryPageCache) evict() {
	now := c.now()
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
		}
	}
	if len(c.entries) < c.maxEntries {
		return
	}
	cull := max(len(c.entries)/memoryCullFraction, 1)
	for key := range c.entries {
		if cull == 0 {
			break
		}
		delete(c.entries, key)
		cull--
	}
}

func (c *MemoryPageCache) Get(_ context.Context, requestURI string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[requestURI]
	if !ok {
		return nil, false, nil
	}
	if e.expired(c.now()) {
		delete(c.entries, requestURI)
		return nil, false, nil
	}
	return append([]byte(nil), e.body...), true, nil
}

func (c *MemoryPageCache) Set(_ context.Context, requestURI string, body []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[requestURI]; !exists {
		c.evict()
	}
	e := memoryEntry{body: append([]byte(nil), body...)}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.entries[requestURI] = e
	return nil
}

func (c *MemoryPageCache) Clear(context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}

// NewPageCache picks Redis when a client is connected, memory otherwise.
func NewPageCache(rdb *redis.Client) PageCache {
	if rdb == nil {
		return NewMemoryPageCache()
	}
	return NewRedisPageCache(rdb)
}

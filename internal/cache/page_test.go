package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisPageCache(t *testing.T) {
	mr, rdb := setupMiniredis(t)
	c := NewRedisPageCache(rdb)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "/")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "/", []byte("home"), HomePageTTL))
	require.NoError(t, c.Set(ctx, "/?page=2", []byte("home 2"), HomePageTTL))
	require.NoError(t, rdb.Set(ctx, "rl:login:ip:1", 1, 0).Err())

	body, ok, err := c.Get(ctx, "/")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "home", string(body))
	assert.Equal(t, HomePageTTL, mr.TTL(PageKey("/")))

	require.NoError(t, c.Clear(ctx))
	_, ok, err = c.Get(ctx, "/?page=2")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, mr.Exists("rl:login:ip:1"), "clear must only drop page keys")
}

func TestRedisPageCache_Expiry(t *testing.T) {
	mr, rdb := setupMiniredis(t)
	c := NewRedisPageCache(rdb)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "/", []byte("home"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "/")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisPageCache_ClearManyKeys(t *testing.T) {
	_, rdb := setupMiniredis(t)
	c := NewRedisPageCache(rdb)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("/?page=%d", i), []byte("x"), time.Minute))
	}
	require.NoError(t, c.Clear(ctx))

	keys, err := rdb.Keys(ctx, PageKeyPrefix+"*").Result()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMemoryPageCache(t *testing.T) {
	c := NewMemoryPageCache()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "/", []byte("home"), 20*time.Minute))

	body, ok, err := c.Get(ctx, "/")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "home", string(body))

	now = now.Add(19 * time.Minute)
	_, ok, _ = c.Get(ctx, "/")
	assert.True(t, ok, "entry still fresh before ttl")

	now = now.Add(time.Minute)
	_, ok, _ = c.Get(ctx, "/")
	assert.False(t, ok, "entry expires at ttl")

	require.NoError(t, c.Set(ctx, "/", []byte("again"), 20*time.Minute))
	require.NoError(t, c.Clear(ctx))
	_, ok, _ = c.Get(ctx, "/")
	assert.False(t, ok)
}

func TestMemoryPageCache_SetSweepsExpired(t *testing.T) {
	c := NewMemoryPageCacheSize(10000)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("/?x=%d", i), []byte("home"), 20*time.Minute))
	}
	require.Equal(t, 500, c.Len())

	now = now.Add(time.Hour)
	require.NoError(t, c.Set(ctx, "/", []byte("fresh"), 20*time.Minute))
	assert.Equal(t, 1, c.Len())

	body, ok, err := c.Get(ctx, "/")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "fresh", string(body))
}

func TestMemoryPageCache_Bounded(t *testing.T) {
	c := NewMemoryPageCacheSize(30)
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("/?page=%d", i), []byte("page"), 20*time.Minute))
		require.LessOrEqual(t, c.Len(), 30)
	}

	// The entry just written survives the cull.
	_, ok, err := c.Get(ctx, "/?page=999")
	require.NoError(t, err)
	assert.True(t, ok)

	// Overwriting a held key never culls.
	n := c.Len()
	require.NoError(t, c.Set(ctx, "/?page=999", []byte("again"), 20*time.Minute))
	assert.Equal(t, n, c.Len())
}

func TestNewPageCache(t *testing.T) {
	_, rdb := setupMiniredis(t)
	assert.IsType(t, &MemoryPageCache{}, NewPageCache(nil))
	assert.IsType(t, &RedisPageCache{}, NewPageCache(rdb))
}

func TestInitRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	InitRedis("redis://" + mr.Addr() + "/0")
	require.NotNil(t, GetClient())
	require.NoError(t, Close())
	assert.Nil(t, GetClient())

	InitRedis("redis://%zz")
	assert.Nil(t, GetClient())
}

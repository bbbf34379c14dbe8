package localcache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, config Config) *Cache {
	t.Helper()
	c := New(config)
	t.Cleanup(c.Close)
	return c
}

func TestCache_SetGet(t *testing.T) {
	c := newTestCache(t, DefaultConfig())

	c.Set("key1", []byte("value1"), time.Hour)

	value, ok := c.Get("key1")
	require.True(t, ok)
	assert.Equal(t, []byte("value1"), value)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_GetReturnsCopy(t *testing.T) {
	c := newTestCache(t, DefaultConfig())

	c.Set("key1", []byte("value1"), time.Hour)

	value, ok := c.Get("key1")
	require.True(t, ok)
	value[0] = 'X'

	again, ok := c.Get("key1")
	require.True(t, ok)
	assert.Equal(t, []byte("value1"), again)
}

func TestCache_SetOverwrites(t *testing.T) {
	c := newTestCache(t, DefaultConfig())

	c.Set("key1", []byte("old"), time.Hour)
	c.Set("key1", []byte("new"), time.Hour)

	value, ok := c.Get("key1")
	require.True(t, ok)
	assert.Equal(t, []byte("new"), value)
	assert.Equal(t, 1, c.Size())
}

func TestCache_Expiry(t *testing.T) {
	c := newTestCache(t, DefaultConfig())

	c.Set("key1", []byte("value1"), 10*time.Millisecond)

	_, ok := c.Get("key1")
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	_, ok = c.Get("key1")
	assert.False(t, ok, "expired entry must not be returned")
	assert.Equal(t, 0, c.Size(), "expired entry must be removed on read")
}

func TestCache_DefaultTTLApplied(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultTTL = 10 * time.Millisecond
	c := newTestCache(t, cfg)

	c.Set("key1", []byte("value1"), 0)

	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("key1")
	assert.False(t, ok)
}

func TestCache_Delete(t *testing.T) {
	c := newTestCache(t, DefaultConfig())

	c.Set("key1", []byte("value1"), time.Hour)

	assert.True(t, c.Delete("key1"))
	assert.False(t, c.Delete("key1"), "second delete must report absence")

	_, ok := c.Get("key1")
	assert.False(t, ok)
}

func TestCache_Clear(t *testing.T) {
	c := newTestCache(t, DefaultConfig())

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("key%d", i), []byte("v"), time.Hour)
	}
	require.Equal(t, 10, c.Size())

	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestCache_LRUEviction(t *testing.T) {
	var evicted []string
	cfg := DefaultConfig()
	cfg.MaxSize = 3
	cfg.OnEvict = func(key string) { evicted = append(evicted, key) }
	c := newTestCache(t, cfg)

	c.Set("a", []byte("1"), time.Hour)
	c.Set("b", []byte("2"), time.Hour)
	c.Set("c", []byte("3"), time.Hour)

	// Touch "a" so "b" becomes the least recently used.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("d", []byte("4"), time.Hour)

	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, 3, c.Size())

	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
}

func TestCache_LFUEviction(t *testing.T) {
	var evicted []string
	cfg := DefaultConfig()
	cfg.MaxSize = 3
	cfg.Policy = PolicyLFU
	cfg.OnEvict = func(key string) { evicted = append(evicted, key) }
	c := newTestCache(t, cfg)

	c.Set("a", []byte("1"), time.Hour)
	c.Set("b", []byte("2"), time.Hour)
	c.Set("c", []byte("3"), time.Hour)

	// "a" and "c" accumulate accesses; "b" stays at its insert count.
	for i := 0; i < 5; i++ {
		c.Get("a")
		c.Get("c")
	}

	c.Set("d", []byte("4"), time.Hour)

	assert.Equal(t, []string{"b"}, evicted)

	_, ok := c.Get("b")
	assert.False(t, ok)
}

func TestCache_Resize(t *testing.T) {
	evictions := 0
	cfg := DefaultConfig()
	cfg.MaxSize = 10
	cfg.OnEvict = func(string) { evictions++ }
	c := newTestCache(t, cfg)

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("key%d", i), []byte("v"), time.Hour)
	}

	c.Resize(4)

	assert.Equal(t, 4, c.Size())
	assert.Equal(t, 4, c.MaxSize())
	assert.Equal(t, 6, evictions)

	// A non-positive bound is ignored.
	c.Resize(0)
	assert.Equal(t, 4, c.MaxSize())
}

func TestCache_SetPolicy(t *testing.T) {
	c := newTestCache(t, DefaultConfig())

	assert.Equal(t, PolicyLRU, c.EvictionPolicy())
	c.SetPolicy(PolicyLFU)
	assert.Equal(t, PolicyLFU, c.EvictionPolicy())
}

func TestCache_SetDefaultTTL(t *testing.T) {
	c := newTestCache(t, DefaultConfig())

	c.SetDefaultTTL(5 * time.Minute)
	assert.Equal(t, 5*time.Minute, c.DefaultTTL())

	// Non-positive TTLs are ignored.
	c.SetDefaultTTL(0)
	assert.Equal(t, 5*time.Minute, c.DefaultTTL())
}

func TestCache_CleanupLoopRemovesExpired(t *testing.T) {
	evictions := 0
	cfg := DefaultConfig()
	cfg.CleanupTick = 10 * time.Millisecond
	cfg.OnEvict = func(string) { evictions++ }
	c := newTestCache(t, cfg)

	c.Set("key1", []byte("v"), 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		return c.Size() == 0
	}, time.Second, 5*time.Millisecond, "background sweep must remove expired entries")
}

func TestCache_CloseIdempotent(t *testing.T) {
	c := New(DefaultConfig())
	c.Close()
	c.Close()
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, PolicyLRU, ParsePolicy("lru"))
	assert.Equal(t, PolicyLFU, ParsePolicy("lfu"))
	assert.Equal(t, PolicyLRU, ParsePolicy("whatever"))
	assert.Equal(t, "lru", PolicyLRU.String())
	assert.Equal(t, "lfu", PolicyLFU.String())
}

// Package localcache provides the in-process cache tier: a bounded key-value
// store with TTL, selectable LRU/LFU eviction, and a background sweep for
// expired entries. Each region owns its own instance, so unrelated regions
// never contend on the same lock.
package localcache

import (
	"container/list"
	"sync"
	"time"
)

// Policy selects the eviction policy applied when the store is at capacity.
type Policy int

const (
	// PolicyLRU evicts the least recently accessed entry.
	PolicyLRU Policy = iota
	// PolicyLFU evicts the least frequently accessed entry.
	PolicyLFU
)

// String returns the string representation of Policy.
func (p Policy) String() string {
	if p == PolicyLFU {
		return "lfu"
	}
	return "lru"
}

// ParsePolicy parses "lru" or "lfu"; anything else falls back to LRU.
func ParsePolicy(s string) Policy {
	if s == "lfu" {
		return PolicyLFU
	}
	return PolicyLRU
}

// entry represents a cache entry with eviction metadata.
type entry struct {
	key         string
	value       []byte
	expiresAt   time.Time
	accessedAt  time.Time
	accessCount int64
	element     *list.Element
}

// Config holds local cache configuration.
type Config struct {
	MaxSize     int
	DefaultTTL  time.Duration
	Policy      Policy
	CleanupTick time.Duration

	// OnEvict is invoked (outside any caller goroutine guarantees, but under
	// the cache lock) once per capacity eviction or expiry removal.
	OnEvict func(key string)
}

// DefaultConfig returns the default local cache configuration.
func DefaultConfig() Config {
	return Config{
		MaxSize:     10000,
		DefaultTTL:  time.Hour,
		Policy:      PolicyLRU,
		CleanupTick: time.Minute,
	}
}

// Cache implements the in-process tier.
type Cache struct {
	mu          sync.RWMutex
	data        map[string]*entry
	lruList     *list.List
	maxSize     int
	defaultTTL  time.Duration
	policy      Policy
	onEvict     func(key string)
	cleanupTick time.Duration
	stopCleanup chan struct{}
	closeOnce   sync.Once
}

// New creates a new local cache with the given configuration.
func New(config Config) *Cache {
	if config.MaxSize <= 0 {
		config.MaxSize = 10000
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = time.Hour
	}
	if config.CleanupTick <= 0 {
		config.CleanupTick = time.Minute
	}

	c := &Cache{
		data:        make(map[string]*entry),
		lruList:     list.New(),
		maxSize:     config.MaxSize,
		defaultTTL:  config.DefaultTTL,
		policy:      config.Policy,
		onEvict:     config.OnEvict,
		cleanupTick: config.CleanupTick,
		stopCleanup: make(chan struct{}),
	}

	go c.cleanupLoop()

	return c
}

// Get retrieves a value from the cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		return nil, false
	}

	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.removeEntry(e, true)
		return nil, false
	}

	e.accessedAt = time.Now()
	e.accessCount++
	c.lruList.MoveToFront(e.element)

	// Return a copy to prevent mutation
	result := make([]byte, len(e.value))
	copy(result, e.value)

	return result, true
}

// Set stores a value in the cache. A non-positive ttl uses the default.
func (c *Cache) Set(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	expiresAt := time.Now().Add(ttl)

	if e, ok := c.data[key]; ok {
		e.value = make([]byte, len(value))
		copy(e.value, value)
		e.expiresAt = expiresAt
		e.accessedAt = time.Now()
		c.lruList.MoveToFront(e.element)
		return
	}

	for c.lruList.Len() >= c.maxSize {
		c.evictOne()
	}

	e := &entry{
		key:         key,
		value:       make([]byte, len(value)),
		expiresAt:   expiresAt,
		accessedAt:  time.Now(),
		accessCount: 1,
	}
	copy(e.value, value)

	e.element = c.lruList.PushFront(e)
	c.data[key] = e
}

// Delete removes a value from the cache.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		return false
	}

	c.removeEntry(e, false)
	return true
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[string]*entry)
	c.lruList = list.New()
}

// Size returns the number of entries in the cache.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// MaxSize returns the current capacity bound.
func (c *Cache) MaxSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxSize
}

// Resize changes the capacity bound, evicting immediately if the cache is
// over the new bound.
func (c *Cache) Resize(maxSize int) {
	if maxSize <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.maxSize = maxSize
	for c.lruList.Len() > c.maxSize {
		c.evictOne()
	}
}

// SetDefaultTTL changes the TTL applied to writes that do not carry their own.
func (c *Cache) SetDefaultTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultTTL = ttl
}

// DefaultTTL returns the TTL applied to writes that do not carry their own.
func (c *Cache) DefaultTTL() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultTTL
}

// SetPolicy switches the eviction policy. Existing entries keep their access
// metadata, so the switch takes effect on the next eviction.
func (c *Cache) SetPolicy(p Policy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policy = p
}

// EvictionPolicy returns the current eviction policy.
func (c *Cache) EvictionPolicy() Policy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.policy
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		close(c.stopCleanup)
	})
}

// Keys returns all keys in the cache (for debugging/testing).
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	return keys
}

func (c *Cache) removeEntry(e *entry, evicted bool) {
	c.lruList.Remove(e.element)
	delete(c.data, e.key)
	if evicted && c.onEvict != nil {
		c.onEvict(e.key)
	}
}

func (c *Cache) evictOne() {
	switch c.policy {
	case PolicyLFU:
		c.evictLeastUsed()
	default:
		c.evictOldest()
	}
}

func (c *Cache) evictOldest() {
	oldest := c.lruList.Back()
	if oldest == nil {
		return
	}
	c.removeEntry(oldest.Value.(*entry), true)
}

func (c *Cache) evictLeastUsed() {
	var victim *entry
	for _, e := range c.data {
		if victim == nil || e.accessCount < victim.accessCount {
			victim = e
		}
	}
	if victim == nil {
		return
	}
	c.removeEntry(victim, true)
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupTick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *Cache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var toRemove []*entry

	for _, e := range c.data {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			toRemove = append(toRemove, e)
		}
	}

	for _, e := range toRemove {
		c.removeEntry(e, true)
	}
}

// Package preheat resolves every foreign reference of an import batch
// against storage exactly once and snapshots the result, so that rule
// execution and validation never touch a repository.
package preheat

import (
	"sync"
	"time"

	"github.com/teranos/trax/metrics"
)

// Loader computes a value on a cache miss. Returning ok=false means the
// object does not exist; such results are never cached so newly created
// metadata is not permanently hidden.
type Loader func(cacheKey, id string) (interface{}, bool)

type cacheEntry struct {
	value      interface{}
	insertedAt time.Time
}

// subCache is one per-key cache with its own TTL and capacity bounds.
type subCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[string]cacheEntry
	order    []string // insertion order, oldest first
}

func (c *subCache) get(id string, now time.Time) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && now.Sub(e.insertedAt) > c.ttl {
		// Expired entries are treated as absent; they are physically
		// removed on the next insert that needs room.
		return nil, false
	}
	return e.value, true
}

func (c *subCache) put(id string, value interface{}, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[id]; exists {
		// Overwrite refreshes insertion time and moves the id to the
		// back of the eviction order.
		c.removeFromOrder(id)
	} else if c.capacity > 0 && len(c.entries) >= c.capacity {
		c.evict(now)
	}

	c.entries[id] = cacheEntry{value: value, insertedAt: now}
	c.order = append(c.order, id)
}

// evict frees one slot: expired entries go first (oldest-inserted first),
// then the least-recently-inserted live entry. Only the capacity
// eviction counts toward the eviction metric; dropping expired entries
// is routine cleanup.
func (c *subCache) evict(now time.Time) {
	if c.ttl > 0 {
		for len(c.order) > 0 {
			oldest := c.order[0]
			e, ok := c.entries[oldest]
			if ok && now.Sub(e.insertedAt) <= c.ttl {
				break
			}
			delete(c.entries, oldest)
			c.order = c.order[1:]
		}
	}
	if len(c.entries) >= c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		delete(c.entries, oldest)
		c.order = c.order[1:]
		metrics.CacheEviction(1)
	}
}

func (c *subCache) removeFromOrder(id string) {
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *subCache) snapshot(now time.Time) map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]interface{}, len(c.entries))
	for id, e := range c.entries {
		if c.ttl > 0 && now.Sub(e.insertedAt) > c.ttl {
			continue
		}
		out[id] = e.value
	}
	return out
}

// Cache is the process-wide preheat cache: per-kind sub-caches bounded by
// TTL and capacity, shared by concurrent import calls. Its lifecycle is
// independent of any single import; InvalidateCache drops everything at
// once (in-flight reads may still complete on pre-invalidation data).
type Cache struct {
	mu     sync.RWMutex
	caches map[string]*subCache
	clock  func() time.Time
}

// NewCache creates an empty cache using the wall clock.
func NewCache() *Cache {
	return NewCacheWithClock(time.Now)
}

// NewCacheWithClock creates a cache with an injectable clock for TTL tests.
func NewCacheWithClock(clock func() time.Time) *Cache {
	return &Cache{
		caches: make(map[string]*subCache),
		clock:  clock,
	}
}

// Get returns the cached value if present and not expired. It never
// triggers a load.
func (c *Cache) Get(cacheKey, id string) (interface{}, bool) {
	c.mu.RLock()
	sub, ok := c.caches[cacheKey]
	c.mu.RUnlock()
	if !ok {
		metrics.CacheMiss()
		return nil, false
	}
	v, ok := sub.get(id, c.clock())
	if ok {
		metrics.CacheHit()
	} else {
		metrics.CacheMiss()
	}
	return v, ok
}

// GetOrCompute returns the cached value, or invokes loader and caches a
// present result. The loader runs outside any cache lock, so two racing
// calls may both load; the second write wins. Absent loader results are
// returned but never cached. A ttlMinutes of 0 means entries never
// expire; they live until evicted by capacity or invalidated.
func (c *Cache) GetOrCompute(cacheKey, id string, loader Loader, ttlMinutes, capacity int) (interface{}, bool) {
	if v, ok := c.Get(cacheKey, id); ok {
		return v, true
	}

	v, ok := loader(cacheKey, id)
	if !ok {
		return nil, false
	}

	c.Put(cacheKey, id, v, ttlMinutes, capacity)
	return v, true
}

// Put inserts or overwrites unconditionally, creating the per-key cache
// with the given bounds on first use. A ttlMinutes of 0 disables expiry
// for that per-key cache.
func (c *Cache) Put(cacheKey, id string, value interface{}, ttlMinutes, capacity int) {
	sub := c.subCacheFor(cacheKey, ttlMinutes, capacity)
	sub.put(id, value, c.clock())
}

// HasKey reports whether a per-key cache exists for cacheKey.
func (c *Cache) HasKey(cacheKey string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.caches[cacheKey]
	return ok
}

// GetAll returns a snapshot of the non-expired entries under cacheKey,
// for warm-up and debugging.
func (c *Cache) GetAll(cacheKey string) map[string]interface{} {
	c.mu.RLock()
	sub, ok := c.caches[cacheKey]
	c.mu.RUnlock()
	if !ok {
		return map[string]interface{}{}
	}
	return sub.snapshot(c.clock())
}

// InvalidateCache drops every per-key cache. Safe to call concurrently
// with in-flight reads; those may observe either the old entries or a
// miss, never a torn entry.
func (c *Cache) InvalidateCache() {
	c.mu.Lock()
	c.caches = make(map[string]*subCache)
	c.mu.Unlock()
}

func (c *Cache) subCacheFor(cacheKey string, ttlMinutes, capacity int) *subCache {
	c.mu.RLock()
	sub, ok := c.caches[cacheKey]
	c.mu.RUnlock()
	if ok {
		return sub
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if sub, ok = c.caches[cacheKey]; ok {
		return sub
	}
	sub = &subCache{
		ttl:      time.Duration(ttlMinutes) * time.Minute,
		capacity: capacity,
		entries:  make(map[string]cacheEntry),
	}
	c.caches[cacheKey] = sub
	return sub
}

// Package cache provides the size- and TTL-bounded memoization layer used for
// query embeddings and search results.
//
// Entries are evicted least-recently-used once the cache is full, and expire
// lazily once their TTL has elapsed, whichever comes first. A disabled cache
// is a valid value that never stores anything, which is how bulk code paths
// stay isolated from interactive ones.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/patternfinder-mcp/internal/metrics"
)

// DefaultSize is used when a non-positive size is requested
const DefaultSize = 10000

// Options configures a Cache
type Options struct {
	Name    string // Label used for metrics
	Enabled bool
	Size    int
	TTL     time.Duration // Zero disables expiry
	Metrics *metrics.Metrics
	Now     func() time.Time // Clock override for tests
}

// Stats is a snapshot of cache counters
type Stats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// HitRate returns hits / (hits + misses), or 0 before any lookup
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// entry represents a cached value with expiration time
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a thread-safe LRU cache with per-entry TTL
type Cache[K comparable, V any] struct {
	name    string
	enabled bool
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics

	mu    sync.Mutex // guards expiry check-and-remove
	cache *lru.Cache[K, entry[V]]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a cache. A disabled cache allocates no storage.
func New[K comparable, V any](opts Options) *Cache[K, V] {
	c := &Cache[K, V]{
		name:    opts.Name,
		enabled: opts.Enabled,
		ttl:     opts.TTL,
		now:     opts.Now,
		metrics: opts.Metrics,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if !c.enabled {
		return c
	}

	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}
	inner, err := lru.New[K, entry[V]](size)
	if err != nil {
		// Only possible with a non-positive size, which was handled above
		inner, _ = lru.New[K, entry[V]](DefaultSize)
	}
	c.cache = inner
	return c
}

// Disabled returns a cache that never stores anything
func Disabled[K comparable, V any]() *Cache[K, V] {
	return New[K, V](Options{Enabled: false})
}

// Enabled reports whether the cache stores values
func (c *Cache[K, V]) Enabled() bool {
	return c != nil && c.enabled
}

// Get returns the live value for key
func (c *Cache[K, V]) Get(key K) (V, bool) {
	var zero V
	if !c.Enabled() {
		return zero, false
	}

	c.mu.Lock()
	e, ok := c.cache.Get(key)
	if ok && c.ttl > 0 && !c.now().Before(e.expiresAt) {
		c.cache.Remove(key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		c.metrics.CacheMiss(c.name)
		return zero, false
	}
	c.hits.Add(1)
	c.metrics.CacheHit(c.name)
	return e.value, true
}

// Set stores value under key, evicting the least recently used entry when full
func (c *Cache[K, V]) Set(key K, value V) {
	if !c.Enabled() {
		return
	}
	e := entry[V]{value: value}
	if c.ttl > 0 {
		e.expiresAt = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.cache.Add(key, e)
	c.mu.Unlock()
}

// Remove deletes key if present
func (c *Cache[K, V]) Remove(key K) {
	if !c.Enabled() {
		return
	}
	c.mu.Lock()
	c.cache.Remove(key)
	c.mu.Unlock()
}

// Purge empties the cache
func (c *Cache[K, V]) Purge() {
	if !c.Enabled() {
		return
	}
	c.mu.Lock()
	c.cache.Purge()
	c.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones not yet evicted
func (c *Cache[K, V]) Len() int {
	if !c.Enabled() {
		return 0
	}
	return c.cache.Len()
}

// Stats returns a snapshot of the hit/miss counters
func (c *Cache[K, V]) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.Len(),
	}
}

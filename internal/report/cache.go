package report

import (
	"fmt"
	"sync"

	json "github.com/goccy/go-json"
)

// Cache memoizes loader results keyed by loader name and arguments. Every
// entry is stamped with the generation current when its load started;
// Invalidate bumps the generation, so all earlier entries miss and a load
// that straddles an invalidation is not stored.
type Cache struct {
	mu      sync.Mutex
	gen     uint64
	entries map[string]cacheEntry
	hits    uint64
	misses  uint64
}

type cacheEntry struct {
	value any
	gen   uint64
}

// CacheStats is a point-in-time view of cache usage.
type CacheStats struct {
	Generation uint64 `json:"generation"`
	Entries    int    `json:"entries"`
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
}

// NewCache returns an empty cache at generation zero.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Invalidate discards every cached result.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries = make(map[string]cacheEntry)
}

// Stats returns the current counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Generation: c.gen, Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}

// Get returns the result stored for fn called with args in the current
// generation.
func (c *Cache) Get(fn string, args ...any) (any, bool) {
	key, err := cacheKey(fn, args...)
	if err != nil {
		return nil, false
	}
	v, _, ok := c.get(key)
	return v, ok
}

// Put stores value as the result of fn called with args.
func (c *Cache) Put(fn string, value any, args ...any) error {
	key, err := cacheKey(fn, args...)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, gen: c.gen}
	return nil
}

func (c *Cache) get(key string) (any, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if ok && e.gen == c.gen {
		c.hits++
		return e.value, c.gen, true
	}
	c.misses++
	return nil, c.gen, false
}

func (c *Cache) put(key string, value any, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.entries[key] = cacheEntry{value: value, gen: gen}
}

// cacheKey identifies a call by loader name and JSON-encoded arguments.
func cacheKey(fn string, args ...any) (string, error) {
	b, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("cache key for %s: %w", fn, err)
	}
	return fn + ":" + string(b), nil
}

// cached returns the stored result for (fn, args) or runs load and stores
// what it returns. Errors are not cached.
func cached[T any](c *Cache, fn string, args []any, load func() (T, error)) (T, error) {
	var zero T
	key, err := cacheKey(fn, args...)
	if err != nil {
		return zero, err
	}
	v, gen, ok := c.get(key)
	if ok {
		return v.(T), nil
	}

	res, err := load()
	if err != nil {
		return zero, err
	}
	c.put(key, res, gen)
	return res, nil
}

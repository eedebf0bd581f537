// Package cache holds server responses that are expensive to rebuild, such as
// the repository stats badge, in a TTL cache backed by patrickmn/go-cache.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Cache wraps go-cache and collapses concurrent loads of the same key.
type Cache struct {
	store *gocache.Cache
	group singleflight.Group
}

// New creates a new cache with the given TTL and cleanup interval.
func New(defaultTTL, cleanupInterval time.Duration) *Cache {
	return &Cache{
		store: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a value from the cache.
func (c *Cache) Get(key string) (any, bool) {
	return c.store.Get(key)
}

// Set stores a value in the cache with default TTL.
func (c *Cache) Set(key string, value any) {
	c.store.Set(key, value, gocache.DefaultExpiration)
}

// Delete removes a value from the cache.
func (c *Cache) Delete(key string) {
	c.store.Delete(key)
}

// Clear removes all items from the cache.
func (c *Cache) Clear() {
	c.store.Flush()
}

// ItemCount returns the number of items in the cache.
func (c *Cache) ItemCount() int {
	return c.store.ItemCount()
}

// Remember returns the cached value for key, calling load on a miss.
// Concurrent misses share one load. Errors are returned and never cached.
func (c *Cache) Remember(key string, load func() (any, error)) (any, error) {
	if v, ok := c.store.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.store.Get(key); ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return nil, err
		}
		c.store.Set(key, v, gocache.DefaultExpiration)
		return v, nil
	})
	return v, err
}

// Stats returns cache statistics.
type Stats struct {
	ItemCount int `json:"item_count"`
}

// GetStats returns current cache statistics.
func (c *Cache) GetStats() Stats {
	return Stats{ItemCount: c.store.ItemCount()}
}

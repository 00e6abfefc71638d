package cache

import (
	"bytes"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an in-process TTL cache backed by go-cache
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get returns a copy of the cached value
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	val, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	data, ok := val.([]byte)
	if !ok {
		return nil, false
	}
	return bytes.Clone(data), true
}

// Set stores a copy of value. A zero ttl uses the default TTL.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(key, bytes.Clone(value), ttl)
	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(key string) error {
	c.cache.Delete(key)
	return nil
}

// Clear removes all values from the cache
func (c *MemoryCache) Clear() error {
	c.cache.Flush()
	return nil
}

// Len returns the number of cached items, including expired ones not yet
// cleaned up
func (c *MemoryCache) Len() int {
	return c.cache.ItemCount()
}

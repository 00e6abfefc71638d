// Package cache stores fetched documents and regulatory feeds between runs.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/ppiankov/legalens/internal/model"
)

// keyPrefix versions the key space so format changes invalidate old entries
const keyPrefix = "legalens:v1:"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from a namespace ("doc", "feed") and the parts
// that identify the entry, typically a URL
func Key(namespace string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return keyPrefix + namespace + ":" + hex.EncodeToString(hash[:])
}

// New builds the cache described by cfg: a memory layer over an optional
// disk layer, or a no-op cache when caching is disabled
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return Nop{}
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	if cfg.Dir == "" {
		return NewMemoryCache(ttl, 10*time.Minute)
	}
	return NewLayeredCache(NewMemoryCache(ttl, 10*time.Minute), NewDiskCache(cfg.Dir, ttl))
}

// GetJSON decodes a cached JSON value into v. Undecodable entries count as
// misses.
func GetJSON(c Cache, key string, v any) bool {
	data, ok := c.Get(key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// SetJSON stores v as JSON
func SetJSON(c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(key, data, ttl)
}

// Nop is a cache that stores nothing
type Nop struct{}

func (Nop) Get(string) ([]byte, bool) { return nil, false }
func (Nop) Set(string, []byte, time.Duration) error { return nil }
func (Nop) Delete(string) error { return nil }
func (Nop) Clear() error { return nil }

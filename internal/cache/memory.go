package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps recent downloads in process memory
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache creates a memory cache; expired items are purged every cleanup interval
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &MemoryCache{items: gocache.New(defaultTTL, cleanupInterval)}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	val, found := c.items.Get(key)
	if !found {
		return nil, false
	}
	data, ok := val.([]byte)
	return data, ok
}

// Set stores value; a zero ttl uses the cache default
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.items.Set(key, value, ttl)
	return nil
}

func (c *MemoryCache) Delete(key string) error {
	c.items.Delete(key)
	return nil
}

func (c *MemoryCache) Clear() error {
	c.items.Flush()
	return nil
}

// Len returns the number of cached items, expired ones included until purged
func (c *MemoryCache) Len() int {
	return c.items.ItemCount()
}

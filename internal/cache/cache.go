package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores downloaded reporting tables by key
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from a download URL. Keys are versioned so a change
// to the stored layout never serves stale encodings.
func Key(rawURL string) string {
	hash := sha256.Sum256([]byte(rawURL))
	return "entorg-v1-" + hex.EncodeToString(hash[:])
}

// New builds the cache described by the settings: memory in front of disk when
// dir is set, memory only otherwise.
func New(memoryTTL time.Duration, dir string, diskTTL time.Duration) Cache {
	if dir == "" {
		return NewMemoryCache(memoryTTL, memoryTTL)
	}
	return NewLayeredCache(memoryTTL, dir, diskTTL)
}

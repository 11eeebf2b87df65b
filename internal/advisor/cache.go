package advisor

import (
	"sync"
	"time"
)

// cacheEntry represents a cached advice result.
type cacheEntry struct {
	expiry time.Time
	advice Advice
}

// adviceCache provides thread-safe caching for advisor results. Identical
// dataset snapshots against the same model skip the network entirely.
type adviceCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
}

// newAdviceCache creates a new cache with the specified TTL.
func newAdviceCache(ttl time.Duration) *adviceCache {
	if ttl == 0 {
		ttl = 15 * time.Minute // Default TTL
	}

	cache := &adviceCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	// Start cleanup goroutine
	go cache.cleanup()

	return cache
}

// get retrieves advice from the cache if it exists and hasn't expired.
func (c *adviceCache) get(key string) (Advice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return Advice{}, false
	}

	if time.Now().After(entry.expiry) {
		return Advice{}, false
	}

	return entry.advice, true
}

// set stores advice in the cache.
func (c *adviceCache) set(key string, advice Advice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		advice: advice,
		expiry: time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *adviceCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// size returns the number of entries in the cache.
func (c *adviceCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *adviceCache) Close() {
	close(c.stopCh)
}

package universe

import (
	"fmt"
	"sync"
	"time"

	"github.com/finbright/daytrade/backend/internal/contracts"
)

// Cache holds recently built universes keyed by (mode, as-of-minute).
// Entries are built fully before insertion, so concurrent readers
// see either a complete universe or a miss, never a partial one.
// Stale reads within the TTL are acceptable by design of the scan
// cadence.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	universe  *Universe
	expiresAt time.Time
}

// NewCache creates a universe cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns a fresh cached universe for the (mode, minute) key.
func (c *Cache) Get(mode contracts.Mode, now time.Time) (*Universe, bool) {
	key := cacheKey(mode, now)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || now.After(entry.expiresAt) {
		return nil, false
	}
	return entry.universe, true
}

// Put swaps in a fully built universe for the (mode, minute) key and
// drops any expired entries while holding the lock.
func (c *Cache) Put(mode contracts.Mode, now time.Time, universe *Universe) {
	key := cacheKey(mode, now)

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry{
		universe:  universe,
		expiresAt: now.Add(c.ttl),
	}
}

// Latest returns the freshest unexpired universe for a mode,
// regardless of which minute built it. Used by read paths that run
// between generation passes.
func (c *Cache) Latest(mode contracts.Mode, now time.Time) (*Universe, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var best *Universe
	for _, e := range c.entries {
		if now.After(e.expiresAt) || e.universe.Mode != mode {
			continue
		}
		if best == nil || e.universe.AsOf.After(best.AsOf) {
			best = e.universe
		}
	}
	return best, best != nil
}

func cacheKey(mode contracts.Mode, now time.Time) string {
	return fmt.Sprintf("%s:%s", mode, now.UTC().Format("2006-01-02T15:04"))
}

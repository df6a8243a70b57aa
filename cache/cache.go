// Package cache holds recently scraped postings in memory so repeat
// uploads inside the freshness window skip the browser entirely.
package cache

import (
	"sync"
	"time"

	"github.com/rishabhxpandey/lnkd-apb/models"
)

// janitorInterval is how often the background sweep evicts expired entries.
const janitorInterval = 5 * time.Minute

// entry holds a cached posting with its insertion timestamp.
type entry struct {
	posting   *models.Posting
	createdAt time.Time
}

// Cache is a bounded in-memory cache of postings keyed by posting key.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	maxAge     time.Duration
}

// New creates a Cache holding at most maxEntries postings, each fresh
// for maxAge. A background janitor sweeps expired entries.
func New(maxEntries int, maxAge time.Duration) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		maxAge:     maxAge,
	}

	go c.janitor()
	return c
}

// Get retrieves the cached posting under key if it is younger than the
// cache's max age. Returns the posting and whether it was a hit.
func (c *Cache) Get(key string) (*models.Posting, bool) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || time.Since(e.createdAt) > c.maxAge {
		return nil, false
	}
	return e.posting, true
}

// Set stores a posting. When the cache is at capacity the oldest
// insertion is evicted to make room; overwriting an existing key never
// evicts.
func (c *Cache) Set(key string, p *models.Posting) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		c.evictOldestLocked()
	}

	c.store[key] = &entry{posting: p, createdAt: time.Now()}
}

// Delete drops the entry under key, if any.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.store, key)
	c.mu.Unlock()
}

// Len reports how many entries are currently held, fresh or expired.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// evictOldestLocked removes the entry with the oldest insertion time.
// Linear scan; the map is bounded by maxEntries.
func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for k, e := range c.store {
		if oldestKey == "" || e.createdAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.createdAt
		}
	}
	if oldestKey != "" {
		delete(c.store, oldestKey)
	}
}

// janitor evicts expired entries on a fixed interval.
func (c *Cache) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-c.maxAge)
		c.mu.Lock()
		for k, e := range c.store {
			if e.createdAt.Before(cutoff) {
				delete(c.store, k)
			}
		}
		c.mu.Unlock()
	}
}

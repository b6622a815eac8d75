package probe

import (
	"sort"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a verdict stays valid.
const DefaultCacheTTL = 10 * time.Minute

// DefaultCacheSize is the high-water mark before eviction kicks in.
const DefaultCacheSize = 1000

type cacheEntry struct {
	exists    bool
	checkedAt time.Time
}

// Cache remembers existence verdicts for a bounded time.
// Thread-safety: all methods are safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	max     int
	now     func() time.Time
}

// NewCache creates a verdict cache. Zero values fall back to the defaults;
// now may be nil to use the wall clock.
func NewCache(ttl time.Duration, maxEntries int, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultCacheSize
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		max:     maxEntries,
		now:     now,
	}
}

// Get returns the cached verdict for url. Expired entries count as absent.
func (c *Cache) Get(url string) (exists, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[url]
	if !found {
		return false, false
	}
	if c.now().Sub(e.checkedAt) >= c.ttl {
		delete(c.entries, url)
		return false, false
	}
	return e.exists, true
}

// Put records a verdict stamped with the current time.
func (c *Cache) Put(url string, exists bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[url] = cacheEntry{exists: exists, checkedAt: c.now()}
	if len(c.entries) > c.max {
		c.evictLocked()
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// evictLocked purges expired entries, then the oldest third if still over
// the mark. Caller must hold c.mu.
func (c *Cache) evictLocked() {
	now := c.now()
	for url, e := range c.entries {
		if now.Sub(e.checkedAt) >= c.ttl {
			delete(c.entries, url)
		}
	}
	if len(c.entries) <= c.max {
		return
	}

	type aged struct {
		url string
		at  time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for url, e := range c.entries {
		all = append(all, aged{url, e.checkedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })

	drop := len(all) / 3
	if drop == 0 {
		drop = 1
	}
	for _, a := range all[:drop] {
		delete(c.entries, a.url)
	}
}

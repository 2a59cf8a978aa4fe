package catalog

import (
	"sync"
	"time"
)

type cacheItem struct {
	Products []Product
	Version  uint64
	Expires  time.Time
}

// DefaultViewCacheEntries bounds the number of distinct filters cached.
const DefaultViewCacheEntries = 512

// ViewCache keeps filtered catalog views for a short TTL. An entry built
// from an older catalog version is treated as a miss. Once full, new keys
// are not cached until stale entries make room.
type ViewCache struct {
	ttl        time.Duration
	maxEntries int
	mu         sync.RWMutex
	m          map[string]cacheItem
	now        func() time.Time
}

func NewViewCache(ttl time.Duration) *ViewCache {
	return &ViewCache{ttl: ttl, maxEntries: DefaultViewCacheEntries, m: make(map[string]cacheItem), now: time.Now}
}

func (c *ViewCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

func (c *ViewCache) Get(key string, version uint64) ([]Product, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	item, ok := c.m[key]
	c.mu.RUnlock()
	if !ok || item.Version != version || c.now().After(item.Expires) {
		return nil, false
	}
	return item.Products, true
}

func (c *ViewCache) Set(key string, version uint64, products []Product) {
	if c == nil || c.ttl <= 0 {
		return
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.m[key]; !ok && len(c.m) >= c.maxEntries {
		c.pruneLocked(version, now)
		if len(c.m) >= c.maxEntries {
			return
		}
	}
	c.m[key] = cacheItem{Products: products, Version: version, Expires: now.Add(c.ttl)}
}

// Prune drops expired and outdated entries and returns how many were removed.
func (c *ViewCache) Prune(version uint64) int {
	if c == nil {
		return 0
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pruneLocked(version, now)
}

func (c *ViewCache) pruneLocked(version uint64, now time.Time) int {
	removed := 0
	for k, item := range c.m {
		if item.Version != version || now.After(item.Expires) {
			delete(c.m, k)
			removed++
		}
	}
	return removed
}

// View applies f to p's products, serving repeated filters from the cache.
func (c *ViewCache) View(p Provider, f Filter) (products []Product, cached bool) {
	key := f.Key()
	version := p.Version()
	if hit, ok := c.Get(key, version); ok {
		return hit, true
	}
	products = Apply(p.Products(), f)
	c.Set(key, version, products)
	return products, false
}

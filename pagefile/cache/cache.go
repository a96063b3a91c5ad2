// Package cache wraps github.com/golang/groupcache/lru into the narrow
// page-cache interface pagefile needs. The teacher (github.com/chirst/cdb)
// declares groupcache in its go.mod but never imports it, having instead
// hand-rolled an equivalent LRU in pager/cache; we give the declared
// dependency an actual job instead of reimplementing the same eviction
// list twice.
package cache

import "github.com/golang/groupcache/lru"

// PageCache caches raw page bytes keyed by page id, evicting least
// recently used entries once maxEntries is exceeded.
type PageCache struct {
	inner *lru.Cache
}

// New returns a PageCache holding at most maxEntries pages.
func New(maxEntries int) *PageCache {
	return &PageCache{inner: lru.New(maxEntries)}
}

// Get returns the cached bytes for id, if present.
func (c *PageCache) Get(id int32) ([]byte, bool) {
	v, ok := c.inner.Get(id)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

// Add caches value for id, evicting the least recently used entry if the
// cache is at capacity.
func (c *PageCache) Add(id int32, value []byte) {
	c.inner.Add(id, value)
}

// Remove evicts id from the cache, if present.
func (c *PageCache) Remove(id int32) {
	c.inner.Remove(id)
}

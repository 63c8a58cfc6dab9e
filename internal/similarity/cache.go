package similarity

import "sync"

// CacheMetrics is the interface for recording cache metrics.
// This allows the cache to be decoupled from the metrics package.
type CacheMetrics interface {
	RecordCacheHits(cacheType string, n int)
	RecordCacheMisses(cacheType string, n int)
	UpdateCacheSize(cacheType string, size int)
}

const cacheType = "similarity"

// Cache memoizes pairwise similarities. Entries are grouped per document:
// document id -> reference member id -> similarity. Growing the reference
// set leaves existing entries valid; replacing it requires Reset.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]map[string]float64
	pairs   int
	metrics CacheMetrics
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]map[string]float64),
	}
}

// SetMetrics sets the metrics recorder for this cache.
func (c *Cache) SetMetrics(metrics CacheMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = metrics
}

// Lookup returns the cached similarity of docID against refID.
func (c *Cache) Lookup(docID, refID string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[docID][refID]
	return v, ok
}

// entry returns a copy of the cached values for docID.
func (c *Cache) entry(docID string) map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	src := c.entries[docID]
	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Store merges newly computed values for docID.
func (c *Cache) Store(docID string, values map[string]float64) {
	if len(values) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[docID]
	if !ok {
		e = make(map[string]float64, len(values))
		c.entries[docID] = e
	}
	for ref, v := range values {
		if _, exists := e[ref]; !exists {
			c.pairs++
		}
		e[ref] = v
	}

	if c.metrics != nil {
		c.metrics.UpdateCacheSize(cacheType, c.pairs)
	}
}

// Reset drops every entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]map[string]float64)
	c.pairs = 0

	if c.metrics != nil {
		c.metrics.UpdateCacheSize(cacheType, 0)
	}
}

// Size returns the number of cached pairs.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pairs
}

// Stats returns cache statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStats{
		Documents: len(c.entries),
		Pairs:     c.pairs,
	}
}

// CacheStats holds cache statistics.
type CacheStats struct {
	Documents int `json:"documents"`
	Pairs     int `json:"pairs"`
}

func (c *Cache) recordLookups(hits, misses int) {
	c.mu.RLock()
	m := c.metrics
	c.mu.RUnlock()

	if m == nil {
		return
	}
	if hits > 0 {
		m.RecordCacheHits(cacheType, hits)
	}
	if misses > 0 {
		m.RecordCacheMisses(cacheType, misses)
	}
}

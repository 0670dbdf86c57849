// Package cache provides the in-memory query result cache.
package cache

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTTL is used when no TTL is configured.
const DefaultTTL = 30 * time.Minute

type entry struct {
	value     any
	expiresAt time.Time
}

// QueryCache caches query responses keyed by normalized query text. Expired
// entries are dropped lazily on access; there is no background sweep.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	logger  *zap.Logger

	// now is swapped in tests.
	now func() time.Time
}

// New creates a query cache with the given TTL.
func New(ttl time.Duration, logger *zap.Logger) *QueryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &QueryCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		logger:  logger.Named("cache"),
		now:     time.Now,
	}
}

// NormalizeKey collapses whitespace and case so trivially different phrasings
// of the same query share a cache slot.
func NormalizeKey(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Get returns the cached value for a query, if present and unexpired.
func (c *QueryCache) Get(query string) (any, bool) {
	key := NormalizeKey(query)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// replaced the entry.
		if cur, ok := c.entries[key]; ok && c.now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores a value for a query.
func (c *QueryCache) Set(query string, value any) {
	key := NormalizeKey(query)
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Clear drops all entries and returns how many were removed.
func (c *QueryCache) Clear() int {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	if n > 0 {
		c.logger.Info("query cache cleared", zap.Int("entries", n))
	}
	return n
}

// Len returns the number of entries, including any not yet lazily expired.
func (c *QueryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Package qcache is a small request cache keyed by logical resource name
// ("items", "currentUser"). It guarantees at most one fetch in flight per
// key; concurrent readers of the same key share the result. Invalidation
// wins over an in-flight fetch: a completion that is stale with respect to
// an invalidation is returned to its caller but never stored.
package qcache

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

type Cache struct {
	mu      sync.RWMutex
	entries map[string]any
	epochs  map[string]uint64
	resets  uint64
	group   singleflight.Group
}

func New() *Cache {
	return &Cache{
		entries: make(map[string]any),
		epochs:  make(map[string]uint64),
	}
}

// Get returns the cached value for key, fetching it with fetch on a miss.
// Fetch errors are not cached; the next Get retries.
func (c *Cache) Get(key string, fetch func() (any, error)) (any, error) {
	c.mu.RLock()
	value, ok := c.entries[key]
	epoch, resets := c.epochs[key], c.resets
	c.mu.RUnlock()
	if ok {
		return value, nil
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		fetched, err := fetch()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		// Only store when no invalidation happened while fetching; the
		// caller still gets its own result either way.
		if c.epochs[key] == epoch && c.resets == resets {
			c.entries[key] = fetched
		}
		c.mu.Unlock()
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Invalidate drops the cached value for key and strips any in-flight fetch
// of its right to store. The next Get refetches.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.epochs[key]++
	c.mu.Unlock()
	c.group.Forget(key)
}

// Reset drops every cached value, including anything still being fetched.
// Used on login/logout.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]any)
	c.resets++
}

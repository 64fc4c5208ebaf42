// Package rcache defines the opaque external cache contract the
// aggregator shortcuts repeat requests through, plus a small in-memory
// adapter grounded on the teacher's own cache wrapper idiom.
package rcache

import (
	"sync"
	"time"
)

// Cache is an opaque string key/value store with per-entry TTL. A
// missing entry is reported via the ok=false return, never an error; a
// failing backend degrades to a miss (err is informational only and the
// aggregator never surfaces it to the caller).
type Cache interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string, ttl time.Duration) error
}

var _ Cache = (*InMemory)(nil)

// InMemory is a goCache-style fallback adapter, useful for tests and for
// running the addon without a Redis instance configured. It's the same
// shape as the teacher's InMemoryCache in pkg/debrid/cache.go, adapted
// to carry an arbitrary string value instead of only a creation time.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	value   string
	expires time.Time
}

// NewInMemory returns an empty InMemory cache.
func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[string]entry)}
}

// Get implements Cache.
func (c *InMemory) Get(key string) (string, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

// Set implements Cache.
func (c *InMemory) Set(key, value string, ttl time.Duration) error {
	e := entry{value: value}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

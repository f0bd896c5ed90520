// Package cache provides a small in-memory key-value cache with per-entry
// absolute expiry and an optional max-size bound.
//
// The bound is best effort: when an insert would exceed it, expired entries
// are swept first and, if still over budget, an arbitrary entry is evicted.
// Callers must not depend on any particular eviction order.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func (e entry[V]) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// Cache stores values for a fixed TTL set at construction. All methods are
// safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]entry[V]
	ttl     time.Duration
	maxSize int
}

// New creates a cache with an unlimited number of entries.
func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return NewWithSize[K, V](ttl, 0)
}

// NewWithSize creates a cache that holds at most maxSize entries.
// A maxSize of 0 means unlimited.
func NewWithSize[K comparable, V any](ttl time.Duration, maxSize int) *Cache[K, V] {
	return &Cache[K, V]{
		entries: make(map[K]entry[V]),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Put stores value under key, expiring ttl from now. An existing entry for
// key is replaced and its expiry reset.
func (c *Cache[K, V]) Put(key K, value V) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		if _, replacing := c.entries[key]; !replacing {
			c.cleanExpiredLocked(now)
			if len(c.entries) >= c.maxSize {
				// Still over budget: drop an arbitrary entry.
				for k := range c.entries {
					delete(c.entries, k)
					break
				}
			}
		}
	}

	c.entries[key] = entry[V]{value: value, expiresAt: now.Add(c.ttl)}
}

// Get returns the value for key if present and not expired. An expired entry
// found during lookup is removed.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if e.expired(time.Now()) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Invalidate removes a single entry unconditionally.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]entry[V])
}

// CleanExpired removes every expired entry. Intended to be driven by a
// periodic sweep so that individual lookups stay cheap.
func (c *Cache[K, V]) CleanExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanExpiredLocked(now)
}

// Len reports the number of stored entries, expired or not.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[K, V]) cleanExpiredLocked(now time.Time) {
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
		}
	}
}

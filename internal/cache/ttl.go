package cache

import (
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
)

// TTL is an in-process cache whose entries expire a fixed duration after insertion.
// Expiry is checked on read only. When capacity is positive the least recently
// used entry is dropped once the cache is full; zero capacity means unbounded.
type TTL[V any] struct {
	mu      sync.Mutex
	entries *lru.Cache
	ttl     time.Duration
	now     func() time.Time
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

func NewTTL[V any](ttl time.Duration, capacity int) *TTL[V] {
	if capacity < 0 {
		capacity = 0
	}

	return &TTL[V]{
		entries: lru.New(capacity),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the live value stored under key.
func (c *TTL[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	raw, ok := c.entries.Get(key)
	if !ok {
		return zero, false
	}

	e := raw.(entry[V])
	if c.now().Sub(e.storedAt) >= c.ttl {
		c.entries.Remove(key)
		return zero, false
	}

	return e.value, true
}

// Set stores value under key, replacing any previous entry and restarting its TTL.
func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Add(key, entry[V]{value: value, storedAt: c.now()})
}

func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.entries.Len()
}

// SetClock replaces the time source used to stamp and expire entries.
func (c *TTL[V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = now
}

// Package viewcache memoizes the JSON-shaped view of a State so a host
// that calls crdt.Value repeatedly between joins — a UI re-render loop,
// a debug endpoint polled on an interval — does not re-walk the
// DotStore on every call.
//
// Grounded on the teacher's counters/atomic_counter.go, which caches
// parsed counter state behind an LRU to avoid re-parsing synchronized
// data; here the cache key is a State's fingerprint (its CausalContext
// plus its live dots) rather than a parsed byte range, so the cache
// self-invalidates the moment a join changes anything.
package viewcache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes Value() results keyed by State.Fingerprint(). It is
// safe for concurrent use: golang-lru/v2's Cache guards its own state
// with an internal mutex.
type Cache struct {
	lru *lru.Cache[uint64, any]
}

// New returns a Cache holding at most size entries. A typical host keeps
// one Cache per State it renders repeatedly; size need not exceed the
// number of distinct CausalContext fingerprints the host expects to see
// in flight (a handful per actively-edited document).
func New(size int) (*Cache, error) {
	l, err := lru.New[uint64, any](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l}, nil
}

// Get returns the cached view for fingerprint and true if present.
func (c *Cache) Get(fingerprint uint64) (any, bool) {
	return c.lru.Get(fingerprint)
}

// Put records view as the cached result for fingerprint, evicting the
// least-recently-used entry if the cache is at capacity.
func (c *Cache) Put(fingerprint uint64, view any) {
	c.lru.Add(fingerprint, view)
}

// Resolve returns the cached view for fingerprint if present, otherwise
// calls compute, caches its result, and returns it. compute is typically
// a closure over crdt.Value(state).
func (c *Cache) Resolve(fingerprint uint64, compute func() any) any {
	if v, ok := c.lru.Get(fingerprint); ok {
		return v
	}
	v := compute()
	c.lru.Add(fingerprint, v)
	return v
}

// Len reports the number of entries currently cached.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge empties the cache.
func (c *Cache) Purge() {
	c.lru.Purge()
}

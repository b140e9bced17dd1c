/*
Package cache implements the small insertion-ordered, TTL-bounded key/value cache used for both the
verdict cache and the immunity cache in the IRC presence.

Entries are kept in insertion order. set() prunes expired entries from the oldest end, evicts the
oldest entry if the cache is already at capacity, then appends the new entry at the newest end.
contains() only reports true for entries that are both present and unexpired; get() returns whatever
value is stored regardless of expiry, leaving expiry enforcement to the caller via contains().

This is the "insertion order, expire-from-oldest, evict-oldest-on-full" semantics called out as the
intended (non-ambiguous) behaviour; the reversed-iteration variant seen elsewhere is not implemented.
*/
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	key    string
	value  interface{}
	expiry time.Time
}

// Cache is a bounded, insertion-ordered map with per-entry TTLs. The zero value is not ready to
// use; construct one with New().
type Cache struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List               // Oldest at Front(), newest at Back(). Elements are *entry.
	index   map[string]*list.Element // key -> element in order

	now func() time.Time // Overridable for tests

	hits, misses, evictions, expired int
}

// New constructs a Cache bounded to maxSize entries.
func New(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Cache{
		maxSize: maxSize,
		order:   list.New(),
		index:   make(map[string]*list.Element),
		now:     time.Now,
	}
}

// Name implements the reporter.Reporter interface.
func (c *Cache) Name() string {
	return "Cache"
}

// Report implements the reporter.Reporter interface.
func (c *Cache) Report(resetCounters bool) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := formatReport(c.order.Len(), c.hits, c.misses, c.evictions, c.expired)
	if resetCounters {
		c.hits, c.misses, c.evictions, c.expired = 0, 0, 0, 0
	}
	return s
}

// pruneOldestLocked removes expired entries from the oldest end of order until it finds the first
// unexpired entry (or the cache is empty). Callers must hold c.mu.
func (c *Cache) pruneOldestLocked(now time.Time) {
	for {
		front := c.order.Front()
		if front == nil {
			return
		}
		e := front.Value.(*entry)
		if e.expiry.After(now) {
			return
		}
		c.order.Remove(front)
		delete(c.index, e.key)
		c.expired++
	}
}

// Set inserts or replaces key with value, expiring at now+ttl. If the cache is already at capacity
// after pruning expired entries, the oldest remaining entry is evicted.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.pruneOldestLocked(now)

	if el, ok := c.index[key]; ok {
		c.order.Remove(el)
		delete(c.index, key)
	}

	if c.order.Len() >= c.maxSize {
		front := c.order.Front()
		if front != nil {
			e := front.Value.(*entry)
			c.order.Remove(front)
			delete(c.index, e.key)
			c.evictions++
		}
	}

	e := &entry{key: key, value: value, expiry: now.Add(ttl)}
	el := c.order.PushBack(e)
	c.index[key] = el
}

// Contains reports whether key is present and unexpired.
func (c *Cache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		c.misses++
		return false
	}
	e := el.Value.(*entry)
	if !e.expiry.After(c.now()) {
		c.misses++
		return false
	}
	c.hits++
	return true
}

// Get returns the value stored for key and true if present, regardless of expiry. Callers that care
// about expiry should gate use of the returned value with a prior Contains() call.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		return nil, false
	}
	return el.Value.(*entry).value, true
}

// Delete removes a single key regardless of its expiry state. Returns true if it was present.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		return false
	}
	c.order.Remove(el)
	delete(c.index, key)
	return true
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = list.New()
	c.index = make(map[string]*list.Element)
}

// Len returns the number of entries currently stored, including any not-yet-pruned expired ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

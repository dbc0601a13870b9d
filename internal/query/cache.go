package query

import "sync"

// cacheEntry holds one cached query's full (pre-pagination) result set.
type cacheEntry struct {
	ranked     []rankedDoc
	total      int
	elapsed    float64
	lemmatized []string
}

// lru is a small mutex-guarded, fixed-capacity cache keyed by the
// lemmatized query token set. It replaces the single-slot "remember the
// last query" pattern of the source with a bounded multi-entry cache,
// following SPEC_FULL's §9 design note; the guarding style (one mutex
// protecting a small piece of process-wide mutable state, mutated only
// through methods) mirrors the reference spinner's state handling.
type lru struct {
	mu       sync.Mutex
	capacity int
	order    []string // most-recently-used first
	entries  map[string]cacheEntry
}

func newLRU(capacity int) *lru {
	return &lru{
		capacity: capacity,
		entries:  make(map[string]cacheEntry),
	}
}

func (c *lru) get(key string) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return cacheEntry{}, false
	}
	c.touch(key)
	return e, true
}

func (c *lru) put(key string, e cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictOldest()
	}
	c.entries[key] = e
	c.touch(key)
}

// touch moves key to the front of the recency order, inserting it if
// absent. Caller must hold c.mu.
func (c *lru) touch(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append([]string{key}, c.order...)
}

// evictOldest drops the least-recently-used entry. Caller must hold c.mu.
func (c *lru) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[len(c.order)-1]
	c.order = c.order[:len(c.order)-1]
	delete(c.entries, oldest)
}

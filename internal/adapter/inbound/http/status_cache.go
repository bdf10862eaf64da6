package http

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/Respawn-Gate/Respawngate/internal/domain/gate"
)

// lruEntry is a doubly-linked list node for the status cache.
type lruEntry struct {
	key      uint64
	status   *gate.Status
	storedAt time.Time
	prev     *lruEntry
	next     *lruEntry
}

// statusCache provides bounded LRU+TTL caching of gate status snapshots.
// It exists to shield the chain node when many dashboards poll the same
// status; it is off by default because the gate's contract is fresh
// reads. Thread-safe with Mutex (both get and put mutate LRU order).
type statusCache struct {
	mu      sync.Mutex
	entries map[uint64]*lruEntry
	head    *lruEntry // most recently used
	tail    *lruEntry // least recently used
	maxSize int
	ttl     time.Duration
}

// newStatusCache creates an LRU cache with the given max size and TTL.
func newStatusCache(maxSize int, ttl time.Duration) *statusCache {
	return &statusCache{
		entries: make(map[uint64]*lruEntry, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// get retrieves a cached snapshot. Returns (status, true) on a live hit.
// Expired entries are dropped on access.
func (c *statusCache) get(key uint64) (*gate.Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(e.storedAt) > c.ttl {
		delete(c.entries, key)
		c.unlinkLocked(e)
		return nil, false
	}
	c.moveToHeadLocked(e)
	return e.status, true
}

// put stores a snapshot. If at capacity, the least recently used entry
// is evicted.
func (c *statusCache) put(key uint64, status *gate.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.status = status
		e.storedAt = time.Now()
		c.moveToHeadLocked(e)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictTailLocked()
	}

	e := &lruEntry{key: key, status: status, storedAt: time.Now()}
	c.entries[key] = e
	c.pushHeadLocked(e)
}

// size returns current cache size.
func (c *statusCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// moveToHeadLocked moves an existing entry to the head. Must be called with lock held.
func (c *statusCache) moveToHeadLocked(e *lruEntry) {
	if c.head == e {
		return
	}
	c.unlinkLocked(e)
	c.pushHeadLocked(e)
}

// pushHeadLocked inserts an entry at the head. Must be called with lock held.
func (c *statusCache) pushHeadLocked(e *lruEntry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

// unlinkLocked removes an entry from the linked list. Must be called with lock held.
func (c *statusCache) unlinkLocked(e *lruEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

// evictTailLocked removes the least recently used entry. Must be called with lock held.
func (c *statusCache) evictTailLocked() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlinkLocked(c.tail)
}

// statusCacheKey hashes the account and chain identity of a snapshot.
func statusCacheKey(account, chainID string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(account)
	_, _ = h.Write([]byte{0}) // separator
	_, _ = h.WriteString(chainID)
	return h.Sum64()
}

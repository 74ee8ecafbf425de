package kantata

import (
	"container/list"
	"sync"
	"time"
)

// nameCache is a small LRU with TTL for resolved display names. Names
// change rarely; caching them keeps repeated reports from re-fetching the
// same users and workspaces.
type nameCache struct {
	capacity int
	ttl      time.Duration

	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   *list.List
}

type cacheEntry struct {
	key       string
	name      string
	expiresAt time.Time
	element   *list.Element
}

func newNameCache(capacity int, ttl time.Duration) *nameCache {
	if capacity <= 0 {
		capacity = 1000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &nameCache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*cacheEntry),
		order:    list.New(),
	}
}

func (c *nameCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if time.Now().After(e.expiresAt) {
		c.remove(e)
		return "", false
	}
	c.order.MoveToFront(e.element)
	return e.name, true
}

func (c *nameCache) set(key, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.name = name
		e.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(e.element)
		return
	}

	for len(c.entries) >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest.Value.(*cacheEntry))
	}

	e := &cacheEntry{
		key:       key,
		name:      name,
		expiresAt: time.Now().Add(c.ttl),
	}
	e.element = c.order.PushFront(e)
	c.entries[key] = e
}

// remove deletes an entry. Caller holds c.mu.
func (c *nameCache) remove(e *cacheEntry) {
	c.order.Remove(e.element)
	delete(c.entries, e.key)
}

func (c *nameCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

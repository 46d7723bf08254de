package registry

import (
	"container/list"
	"sync"
)

// LRU is a fixed-capacity, recency-ordered cache of loaded artifacts.
// Entries never expire by time; they leave only by capacity eviction,
// explicit removal, or Clear. Safe for concurrent use.
type LRU struct {
	capacity int

	mu    sync.Mutex
	ll    *list.List // front = most recently used
	items map[string]*list.Element
}

type lruEntry struct {
	key string
	art *Artifact
}

// NewLRU creates an LRU cache. Capacity below 1 is clamped to 1.
func NewLRU(capacity int) *LRU {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get returns the artifact for key and marks it most recently used.
// A miss has no side effect.
func (c *LRU) Get(key string) (*Artifact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*lruEntry).art, true
}

// Put inserts or updates key and marks it most recently used. When a new key
// breaches capacity, exactly one entry (the least recently used) is evicted
// and its key returned; otherwise Put returns "". Logging an eviction is the
// caller's decision, not the cache's.
func (c *LRU) Put(key string, art *Artifact) (evicted string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*lruEntry).art = art
		c.ll.MoveToFront(el)
		return ""
	}
	if c.ll.Len() >= c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			ent := oldest.Value.(*lruEntry)
			delete(c.items, ent.key)
			c.ll.Remove(oldest)
			evicted = ent.key
		}
	}
	c.items[key] = c.ll.PushFront(&lruEntry{key: key, art: art})
	return evicted
}

// Remove drops key if present.
func (c *LRU) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	delete(c.items, key)
	c.ll.Remove(el)
	return true
}

// Keys returns all cached keys, most recently used first.
func (c *LRU) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.ll.Len())
	for el := c.ll.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*lruEntry).key)
	}
	return keys
}

// Contains reports key presence without touching recency.
func (c *LRU) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// Len returns the current entry count.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Capacity returns the fixed capacity.
func (c *LRU) Capacity() int { return c.capacity }

// Clear discards every entry.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element)
}

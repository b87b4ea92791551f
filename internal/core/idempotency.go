package core

import (
	"container/list"

	"github.com/google/uuid"
)

// IdempotencyCache is the in-memory first tier of duplicate detection.
// It holds the most recent operation ids in an LRU; anything that ages
// out is still caught by the persistence tier's unique constraint.
type IdempotencyCache struct {
	capacity int
	order    *list.List
	index    map[uuid.UUID]*list.Element
}

// NewIdempotencyCache creates a cache bounded at capacity entries.
func NewIdempotencyCache(capacity int) *IdempotencyCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &IdempotencyCache{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[uuid.UUID]*list.Element, capacity),
	}
}

// Seen reports whether id was recently processed and refreshes its
// recency if so.
func (c *IdempotencyCache) Seen(id uuid.UUID) bool {
	el, ok := c.index[id]
	if ok {
		c.order.MoveToFront(el)
	}
	return ok
}

// Mark records id as processed, evicting the oldest entry when full.
func (c *IdempotencyCache) Mark(id uuid.UUID) {
	if el, ok := c.index[id]; ok {
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.index, oldest.Value.(uuid.UUID))
		}
	}
	c.index[id] = c.order.PushFront(id)
}

// Len returns the number of cached ids.
func (c *IdempotencyCache) Len() int {
	return c.order.Len()
}

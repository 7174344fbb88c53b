package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	key       string
	value     string
	expiresAt time.Time
}

// memoryCache is an LRU with per-entry expiry. Inserting past Capacity evicts
// the least recently used entry.
type memoryCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	order    *list.List
	items    map[string]*list.Element
}

func NewMemory(cfg Config) (Cache, error) {
	return newMemory(cfg, time.Now)
}

func newMemory(cfg Config, now func() time.Time) (*memoryCache, error) {
	if cfg.Capacity <= 0 || cfg.TTL <= 0 {
		return nil, ErrInvalidConfig
	}
	return &memoryCache{
		capacity: cfg.Capacity,
		ttl:      cfg.TTL,
		now:      now,
		order:    list.New(),
		items:    make(map[string]*list.Element, cfg.Capacity),
	}, nil
}

func (c *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return "", false, nil
	}
	ent := el.Value.(*memoryEntry)
	if !c.now().Before(ent.expiresAt) {
		c.removeElement(el)
		return "", false, nil
	}
	c.order.MoveToFront(el)
	return ent.value, true, nil
}

func (c *memoryCache) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	expiresAt := c.now().Add(c.ttl)
	if el, ok := c.items[key]; ok {
		ent := el.Value.(*memoryEntry)
		ent.value = value
		ent.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return nil
	}
	el := c.order.PushFront(&memoryEntry{key: key, value: value, expiresAt: expiresAt})
	c.items[key] = el
	for c.order.Len() > c.capacity {
		c.removeElement(c.order.Back())
	}
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	return nil
}

func (c *memoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = map[string]*list.Element{}
	return nil
}

func (c *memoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *memoryCache) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.items, el.Value.(*memoryEntry).key)
}

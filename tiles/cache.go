package tiles

import (
	"image"
	"slices"
	"sync"

	"gioui.org/op/paint"
)

// Cache stores values by tile key (see GetTileKey). It is safe for use by
// the UI goroutine and pool workers at the same time. A cache with a limit
// drops its oldest entries once it holds more than limit values.
type Cache[V any] struct {
	items map[string]V
	order []string
	limit int
	mu    sync.RWMutex
}

// ImageCache holds decoded tile images.
type ImageCache = Cache[image.Image]

// ImageOpCache keeps paint.ImageOps so a tile image is uploaded once
// instead of on every frame.
type ImageOpCache = Cache[paint.ImageOp]

func NewCache[V any]() *Cache[V] {
	return &Cache[V]{items: make(map[string]V)}
}

// NewBoundedCache returns a cache holding at most limit values.
func NewBoundedCache[V any](limit int) *Cache[V] {
	c := NewCache[V]()
	c.limit = limit
	return c
}

func NewImageCache() *ImageCache {
	return NewCache[image.Image]()
}

func NewImageOpCache() *ImageOpCache {
	return NewCache[paint.ImageOp]()
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.items[key]
	return val, ok
}

func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok && c.limit > 0 {
		c.order = append(c.order, key)
		for len(c.order) > c.limit {
			delete(c.items, c.order[0])
			c.order = c.order[1:]
		}
	}
	c.items[key] = value
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok {
		return
	}
	delete(c.items, key)
	if i := slices.Index(c.order, key); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]V)
	c.order = nil
	c.mu.Unlock()
}

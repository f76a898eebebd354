package frames

import (
	"image"
	"sync"
)

// Cache is a concurrency-safe cache of decoded images, keyed by path.
// Sequences reuse it for files shared between frames, such as a static
// reactive mask.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*cacheEntry
}

type cacheEntry struct {
	img image.Image
	err error
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{items: make(map[string]*cacheEntry)}
}

// Image loads and caches an image. Decode errors are cached too.
func (c *Cache) Image(path string) (image.Image, error) {
	// Fast path: read lock
	c.mu.RLock()
	if entry, exists := c.items[path]; exists {
		c.mu.RUnlock()
		return entry.img, entry.err
	}
	c.mu.RUnlock()

	// Slow path: load from disk
	img, err := LoadImage(path)

	// Write lock with double-check
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, exists := c.items[path]; exists {
		return entry.img, entry.err
	}
	c.items[path] = &cacheEntry{img: img, err: err}
	return img, err
}

// Len returns the number of cached paths.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

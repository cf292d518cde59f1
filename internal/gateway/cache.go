package gateway

import (
	"fmt"
	"log"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ziadkadry99/udahub/internal/db"
)

// DefaultHandleCacheSize bounds the number of distinct store files kept open.
const DefaultHandleCacheSize = 4

// HandleCache keeps at most one read-only handle per store path. Evicted
// handles are closed.
type HandleCache struct {
	mu      sync.Mutex
	handles *lru.Cache[string, *db.DB]
}

// NewHandleCache creates a cache holding up to size open stores.
func NewHandleCache(size int) (*HandleCache, error) {
	if size <= 0 {
		size = DefaultHandleCacheSize
	}
	handles, err := lru.NewWithEvict[string, *db.DB](size, func(path string, d *db.DB) {
		if err := d.Close(); err != nil {
			log.Printf("gateway: closing store %s: %v", path, err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("creating handle cache: %w", err)
	}
	return &HandleCache{handles: handles}, nil
}

// Get returns the cached handle for path, opening it on first use.
func (c *HandleCache) Get(path string) (*db.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d, ok := c.handles.Get(path); ok {
		return d, nil
	}

	d, err := db.OpenReadOnly(path)
	if err != nil {
		return nil, err
	}
	c.handles.Add(path, d)
	return d, nil
}

// Forget closes and drops the handle for path, if any.
func (c *HandleCache) Forget(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handles.Remove(path)
}

// Len returns the number of open handles.
func (c *HandleCache) Len() int {
	return c.handles.Len()
}

// Close closes every cached handle.
func (c *HandleCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handles.Purge()
}

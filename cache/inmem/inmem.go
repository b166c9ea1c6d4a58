// Package inmem provides a cache.Cache held in memory.
package inmem

import (
	"context"
	"fmt"
	"sync"

	"github.com/dekarrin/plyfin/cache"
)

// Cache is a cache.Cache backed by a map. The zero value is not ready for use;
// create one with New.
type Cache struct {
	mtx     sync.RWMutex
	entries map[string][]byte
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{entries: map[string][]byte{}}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	data, ok := c.entries[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, cache.ErrNotFound)
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (c *Cache) Put(ctx context.Context, key string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)

	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.entries[key] = cp
	return nil
}

// Len returns the number of entries in the Cache.
func (c *Cache) Len() int {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	return len(c.entries)
}

func (c *Cache) Close() error {
	return nil
}

// Package cache provides an LRU cache of loaded computed indexes, keyed by
// directory path, so a daemon or MCP server serving multiple indexes
// doesn't reload one from disk on every request.
package cache

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/baysets/baysets/internal/index"
)

// DefaultMaxIndexes is used when config.CacheConfig.MaxIndexes is unset.
const DefaultMaxIndexes = 8

// Loader loads (or reloads) the computed index rooted at dir.
type Loader func(ctx context.Context, dir string) (*index.Computed, error)

// IndexCache caches *index.Computed values by directory path with bounded
// LRU eviction. Get is safe for concurrent use by multiple query
// handlers/goroutines.
type IndexCache struct {
	mu     sync.Mutex
	cache  *lru.Cache[string, *index.Computed]
	loader Loader
}

// New creates an IndexCache holding up to maxIndexes entries. loader is
// invoked on a cache miss or after Invalidate.
func New(maxIndexes int, loader Loader) (*IndexCache, error) {
	if maxIndexes <= 0 {
		maxIndexes = DefaultMaxIndexes
	}
	c, err := lru.New[string, *index.Computed](maxIndexes)
	if err != nil {
		return nil, err
	}
	return &IndexCache{cache: c, loader: loader}, nil
}

// Get returns the cached computed index for dir, loading it via the
// configured Loader on a miss.
func (c *IndexCache) Get(ctx context.Context, dir string) (*index.Computed, error) {
	c.mu.Lock()
	if idx, ok := c.cache.Get(dir); ok {
		c.mu.Unlock()
		return idx, nil
	}
	c.mu.Unlock()

	idx, err := c.loader(ctx, dir)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache.Add(dir, idx)
	c.mu.Unlock()
	return idx, nil
}

// Invalidate evicts dir's cached entry, if any, so the next Get reloads it
// from disk. Used by internal/reload when a directory-replace build
// finishes.
func (c *IndexCache) Invalidate(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Remove(dir)
}

// Len reports the number of indexes currently cached.
func (c *IndexCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}

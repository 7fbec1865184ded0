package compat

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/git-pkgs/pkgbuilder/internal/core"
)

// Cache remembers package metadata for the lifetime of a session. Entries are
// never evicted: a package is fetched at most once, and a failed fetch is
// remembered as absent.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*core.PackageMetadata // nil value means absent
	group   singleflight.Group
	fetches atomic.Int64
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*core.PackageMetadata)}
}

// Get returns the cached entry for name. ok is false when name has never been
// looked up; meta is nil when the lookup failed.
func (c *Cache) Get(name string) (meta *core.PackageMetadata, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	meta, ok = c.entries[name]
	return meta, ok
}

// Lookup returns the metadata for name, fetching it from src on first use.
// Concurrent lookups of the same uncached name share one fetch, which runs
// detached from any single caller's context: a caller that gives up gets its
// own context error while the fetch completes for everyone else. The returned
// error is the fetch error, if this call or the shared call performed one;
// cached absences return nil metadata and a nil error.
func (c *Cache) Lookup(ctx context.Context, src core.MetadataSource, name string) (*core.PackageMetadata, error) {
	if meta, ok := c.Get(name); ok {
		return meta, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(name, func() (any, error) {
		// A lookup that finished between Get and DoChan already stored the entry.
		if meta, ok := c.Get(name); ok {
			return meta, nil
		}

		c.fetches.Add(1)
		meta, err := src.FetchMetadata(fetchCtx, name)
		if err != nil {
			meta = nil
		}
		c.store(name, meta)
		return meta, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		meta, _ := res.Val.(*core.PackageMetadata)
		return meta, res.Err
	}
}

func (c *Cache) store(name string, meta *core.PackageMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = meta
}

// Fetches returns how many times the cache has called a metadata source.
func (c *Cache) Fetches() int64 {
	return c.fetches.Load()
}

// Len returns the number of cached entries, absent ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

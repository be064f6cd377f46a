package site

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"freegle/internal/core"
)

var _ core.PageCache = (*MemoryCache)(nil)

// MemoryCache keeps the most recently used pages in process memory.
type MemoryCache struct {
	pages *lru.Cache[string, *core.Page]
	now   func() time.Time
}

func NewMemoryCache(size int) (*MemoryCache, error) {
	pages, err := lru.New[string, *core.Page](max(size, 1))
	if err != nil {
		return nil, err
	}
	return &MemoryCache{pages: pages, now: time.Now}, nil
}

func (c *MemoryCache) Get(_ context.Context, key string) (*core.Page, bool, error) {
	page, ok := c.pages.Get(key)
	if !ok {
		return nil, false, nil
	}
	if page.Expired(c.now()) {
		c.pages.Remove(key)
		return nil, false, nil
	}
	return page, true, nil
}

func (c *MemoryCache) Put(_ context.Context, key string, page *core.Page) error {
	c.pages.Add(key, page)
	return nil
}

func (c *MemoryCache) Purge(_ context.Context) error {
	c.pages.Purge()
	return nil
}

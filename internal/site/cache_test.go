package site

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"freegle/internal/core"
)

func TestMemoryCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	cache, err := NewMemoryCache(2)
	require.NoError(t, err)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Put(ctx, "/about", &core.Page{Body: []byte("about")}))
	require.NoError(t, cache.Put(ctx, "/message/1", &core.Page{Body: []byte("msg"), ExpiresAt: now.Add(time.Minute)}))

	page, ok, err := cache.Get(ctx, "/about")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "about", string(page.Body))

	_, ok, _ = cache.Get(ctx, "/message/1")
	require.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = cache.Get(ctx, "/message/1")
	require.False(t, ok)

	require.NoError(t, cache.Put(ctx, "/a", &core.Page{}))
	require.NoError(t, cache.Put(ctx, "/b", &core.Page{}))
	_, ok, _ = cache.Get(ctx, "/about")
	require.False(t, ok, "least recently used page is evicted")

	require.NoError(t, cache.Purge(ctx))
	_, ok, _ = cache.Get(ctx, "/b")
	require.False(t, ok)
}

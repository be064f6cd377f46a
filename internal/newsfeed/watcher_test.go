package newsfeed_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"freegle/internal/config"
	"freegle/internal/newsfeed"
	"freegle/pkg/fdapi"
)

const watcherGauges = `
# HELP freegle_newsfeed_max_seen Highest newsfeed item id merged into the store.
# TYPE freegle_newsfeed_max_seen gauge
freegle_newsfeed_max_seen 30
# HELP freegle_newsfeed_unread Unread newsfeed items as reported by the server.
# TYPE freegle_newsfeed_unread gauge
freegle_newsfeed_unread 5
`

func newWatcher(t *testing.T, store *newsfeed.Store) *newsfeed.Watcher {
	t.Helper()

	watcher := &newsfeed.Watcher{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: &config.Config{NewsfeedDistance: "nearby", NewsfeedThreads: 2},
		Store:  store,
	}
	require.NoError(t, watcher.Init(context.Background()))
	return watcher
}

// Not parallel: the gauges are process wide.
func TestWatcher_Poll(t *testing.T) {
	api := newFakeAPI()
	api.count = 2
	api.feed = []*fdapi.NewsSummary{{ID: 10}, {ID: 20}, {ID: 30}}
	api.set(thread(10, "ladder"))
	api.set(thread(20, "sofa", &fdapi.NewsItem{ID: 21, ThreadHead: 20}))
	api.set(thread(30, "bike"))

	store := newStore(t, api)
	watcher := newWatcher(t, store)

	require.NoError(t, watcher.Poll(context.Background()))
	store.Wait()

	require.Len(t, store.Feed(), 3)
	require.Equal(t, int64(30), store.MaxSeen())
	require.NotNil(t, store.ByID(21))
	require.Equal(t, 2, store.Count())
	require.Equal(t, int32(3), api.fetches.Load())

	t.Run("refreshes the count itself", func(t *testing.T) {
		// Nothing new is merged, so no seen marker refreshes the count in the background.
		api.mu.Lock()
		api.count = 5
		api.mu.Unlock()
		counts := api.counts.Load()

		require.NoError(t, watcher.Poll(context.Background()))

		require.Equal(t, 5, store.Count())
		require.Equal(t, counts+1, api.counts.Load())
		require.NoError(t, testutil.GatherAndCompare(prometheus.DefaultGatherer, strings.NewReader(watcherGauges),
			"freegle_newsfeed_unread", "freegle_newsfeed_max_seen"))
	})
}

func TestWatcher_Poll_Canceled(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.feed = []*fdapi.NewsSummary{{ID: 10}}
	api.set(thread(10, "ladder"))

	watcher := newWatcher(t, newStore(t, api))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, watcher.Poll(ctx), context.Canceled)
}

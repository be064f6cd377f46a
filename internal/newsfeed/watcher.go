package newsfeed

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"freegle/internal/config"
	"freegle/internal/core"
)

var (
	unreadGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "freegle_newsfeed_unread",
		Help: "Unread newsfeed items as reported by the server.",
	})

	maxSeenGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "freegle_newsfeed_max_seen",
		Help: "Highest newsfeed item id merged into the store.",
	})

	threadsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freegle_newsfeed_threads_fetched_total",
		Help: "Threads fetched by the watcher.",
	}, []string{"status"})
)

// Watcher keeps the store warm: it polls the feed and loads every thread in it.
type Watcher struct {
	Logger *slog.Logger
	Config *config.Config
	Store  core.NewsfeedStore
}

func (w *Watcher) Init(_ context.Context) error {
	w.Logger = w.Logger.With("component", "newsfeed.Watcher")
	return nil
}

func (w *Watcher) Run(ctx context.Context) error {
	interval := w.Config.NewsfeedInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.Logger.Error("newsfeed poll failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll refreshes the feed, every thread in it and the unread count.
func (w *Watcher) Poll(ctx context.Context) error {
	feed, err := w.Store.FetchFeed(ctx, w.Config.NewsfeedDistance)
	if err != nil {
		return err
	}

	// gctx is cancelled once Wait returns.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(w.Config.NewsfeedThreads, 1))

	for _, summary := range feed {
		g.Go(func() error {
			if w.Store.Fetch(gctx, summary.ID, false, false) == nil {
				threadsFetched.WithLabelValues("missing").Inc()
				return nil
			}
			threadsFetched.WithLabelValues("ok").Inc()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	count, err := w.Store.FetchCount(ctx, true)
	if err != nil {
		return err
	}

	unreadGauge.Set(float64(count))
	maxSeenGauge.Set(float64(w.Store.MaxSeen()))

	w.Logger.Debug("newsfeed polled", "threads", len(feed), "unread", count, "max_seen", w.Store.MaxSeen())

	return nil
}

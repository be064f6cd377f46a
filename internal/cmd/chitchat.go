package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/k0kubun/pp"
	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"freegle/internal/backend"
	"freegle/internal/cmd/flags"
	"freegle/internal/core"
	"freegle/internal/metrics"
	"freegle/internal/newsfeed"
)

var ErrNotFound = errors.New("not found")

var lovelistFlag = &cli.BoolFlag{
	Name:  "lovelist",
	Usage: "Include the users who loved the item",
}

var chitchatCmd = &cli.Command{
	Name:  "chitchat",
	Usage: "Read and write the community newsfeed",
	Flags: []cli.Flag{
		flags.NewsfeedDistance,
	},
	Commands: []*cli.Command{
		{
			Name:  "watch",
			Usage: "Poll the newsfeed, keep it marked as seen and export unread metrics",
			Flags: []cli.Flag{
				flags.NewsfeedInterval,
				flags.NewsfeedThreads,
				flags.MetricsAddr,
			},
			Action: func(ctx context.Context, c *cli.Command) error {
				cfg, err := parseConfig(c)
				if err != nil {
					return err
				}

				return run(ctx, cfg,
					pal.Provide[core.NewsAPI, backend.Backend](),
					pal.Provide[core.NewsfeedStore, newsfeed.Store](),
					pal.Provide[core.NewsfeedWatcher, newsfeed.Watcher](),
					pal.Provide[core.MetricsServer, metrics.Server](),
				)
			},
		},
		{
			Name:  "feed",
			Usage: "Print the feed",
			Action: withStore(func(ctx context.Context, c *cli.Command, store core.NewsfeedStore) error {
				feed, err := store.FetchFeed(ctx, c.String("newsfeed-distance"))
				if err != nil {
					return err
				}
				pp.Println(feed)
				return nil
			}),
		},
		{
			Name:  "count",
			Usage: "Print the number of unread items",
			Action: withStore(func(ctx context.Context, _ *cli.Command, store core.NewsfeedStore) error {
				count, err := store.FetchCount(ctx, true)
				if err != nil {
					return err
				}
				pp.Println(count)
				return nil
			}),
		},
		{
			Name:      "show",
			Usage:     "Print a thread",
			ArgsUsage: "<id>",
			Flags:     []cli.Flag{lovelistFlag},
			Action: withStore(func(ctx context.Context, c *cli.Command, store core.NewsfeedStore) error {
				id, err := idArg(c, 0, "id")
				if err != nil {
					return err
				}

				item := store.Fetch(ctx, id, true, c.Bool("lovelist"))
				if item == nil {
					return ErrNotFound
				}
				pp.Println(item)
				return nil
			}),
		},
		{
			Name:      "post",
			Usage:     "Start a new thread",
			ArgsUsage: "<message...>",
			Action: withStore(func(ctx context.Context, c *cli.Command, store core.NewsfeedStore) error {
				message, err := textArg(c, 0, "message")
				if err != nil {
					return err
				}

				id, err := store.Send(ctx, message, 0, 0, 0)
				if err != nil {
					return err
				}
				pp.Println(id)
				return nil
			}),
		},
		{
			Name:      "reply",
			Usage:     "Reply to an item of a thread",
			ArgsUsage: "<threadhead> <replyto> <message...>",
			Action: withStore(func(ctx context.Context, c *cli.Command, store core.NewsfeedStore) error {
				ids, err := idArgs(c, "threadhead", "replyto")
				if err != nil {
					return err
				}
				message, err := textArg(c, 2, "message")
				if err != nil {
					return err
				}

				id, err := store.Send(ctx, message, ids[1], ids[0], 0)
				if err != nil {
					return err
				}
				pp.Println(id)
				return nil
			}),
		},
		{
			Name:      "edit",
			Usage:     "Change the text of an item",
			ArgsUsage: "<id> <threadhead> <message...>",
			Action: withStore(func(ctx context.Context, c *cli.Command, store core.NewsfeedStore) error {
				ids, err := idArgs(c, "id", "threadhead")
				if err != nil {
					return err
				}
				message, err := textArg(c, 2, "message")
				if err != nil {
					return err
				}
				return store.Edit(ctx, ids[0], message, ids[1])
			}),
		},
		threadAction("love", "Love an item", func(ctx context.Context, store core.NewsfeedStore, id, threadHead int64) error {
			return store.Love(ctx, id, threadHead)
		}),
		threadAction("unlove", "Take a love back", func(ctx context.Context, store core.NewsfeedStore, id, threadHead int64) error {
			return store.Unlove(ctx, id, threadHead)
		}),
		threadAction("delete", "Delete an item, deleting the thread head deletes the thread", func(ctx context.Context, store core.NewsfeedStore, id, threadHead int64) error {
			return store.Delete(ctx, id, threadHead)
		}),
		{
			Name:      "unfollow",
			Usage:     "Stop notifications for a thread",
			ArgsUsage: "<id>",
			Action: withStore(func(ctx context.Context, c *cli.Command, store core.NewsfeedStore) error {
				id, err := idArg(c, 0, "id")
				if err != nil {
					return err
				}
				return store.Unfollow(ctx, id)
			}),
		},
		{
			Name:      "unhide",
			Usage:     "Make a hidden item visible again",
			ArgsUsage: "<id>",
			Action: withStore(func(ctx context.Context, c *cli.Command, store core.NewsfeedStore) error {
				id, err := idArg(c, 0, "id")
				if err != nil {
					return err
				}
				return store.Unhide(ctx, id)
			}),
		},
		{
			Name:      "refer",
			Usage:     "Point the poster to the right place: Wanted, Offer, Taken, Received or CommunityEvent",
			ArgsUsage: "<id> <target>",
			Action: withStore(func(ctx context.Context, c *cli.Command, store core.NewsfeedStore) error {
				id, err := idArg(c, 0, "id")
				if err != nil {
					return err
				}
				target, err := textArg(c, 1, "target")
				if err != nil {
					return err
				}
				return store.ReferTo(ctx, id, target)
			}),
		},
		{
			Name:      "report",
			Usage:     "Report an item to the volunteers",
			ArgsUsage: "<id> <reason...>",
			Action: withStore(func(ctx context.Context, c *cli.Command, store core.NewsfeedStore) error {
				id, err := idArg(c, 0, "id")
				if err != nil {
					return err
				}
				reason, err := textArg(c, 1, "reason")
				if err != nil {
					return err
				}
				return store.Report(ctx, id, reason)
			}),
		},
		{
			Name:      "tags",
			Usage:     "List the users that can be @-mentioned in the given threads",
			ArgsUsage: "<id...>",
			Action: withStore(func(ctx context.Context, c *cli.Command, store core.NewsfeedStore) error {
				for i := range c.Args().Len() {
					id, err := idArg(c, i, "id")
					if err != nil {
						return err
					}
					store.Fetch(ctx, id, true, false)
				}
				pp.Println(store.TagUsers())
				return nil
			}),
		},
	},
}

func threadAction(name, usage string, fn func(ctx context.Context, store core.NewsfeedStore, id, threadHead int64) error) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<id> <threadhead>",
		Action: withStore(func(ctx context.Context, c *cli.Command, store core.NewsfeedStore) error {
			ids, err := idArgs(c, "id", "threadhead")
			if err != nil {
				return err
			}
			return fn(ctx, store, ids[0], ids[1])
		}),
	}
}

// withStore runs a one-shot command against a fresh store. Background work, such as marking items
// seen, finishes before the command returns.
func withStore(fn func(ctx context.Context, c *cli.Command, store core.NewsfeedStore) error) cli.ActionFunc {
	return withBackend(func(ctx context.Context, c *cli.Command, api *backend.Backend) error {
		store := &newsfeed.Store{Logger: slog.Default(), API: api}
		if err := store.Init(ctx); err != nil {
			return err
		}
		defer store.Shutdown(ctx) //nolint:errcheck

		err := fn(ctx, c, store)
		store.Wait()
		return err
	})
}

func withBackend(fn func(ctx context.Context, c *cli.Command, api *backend.Backend) error) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		cfg, err := parseConfig(c)
		if err != nil {
			return err
		}

		api := &backend.Backend{Logger: slog.Default(), Config: cfg}
		if err := api.Init(ctx); err != nil {
			return err
		}
		defer api.Shutdown(ctx) //nolint:errcheck

		return fn(ctx, c, api)
	}
}

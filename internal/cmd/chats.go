package cmd

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/k0kubun/pp"
	"github.com/urfave/cli/v3"

	"freegle/internal/backend"
	"freegle/internal/core"
	"freegle/pkg/fdapi"
)

var chatsCmd = &cli.Command{
	Name:  "chats",
	Usage: "Talk to other freeglers",
	Commands: []*cli.Command{
		{
			Name:  "list",
			Usage: "List the chats of the current user",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "search", Usage: "Only chats mentioning the text"},
				&cli.TimestampFlag{
					Name:   "since",
					Usage:  "Only chats active after the given time",
					Config: cli.TimestampConfig{Layouts: []string{"2006-01-02", "2006-01-02T15:04:05Z07:00"}},
				},
			},
			Action: withChats(func(ctx context.Context, c *cli.Command, chats core.ChatAPI) error {
				rooms, err := chats.ListChats(ctx, fdapi.ListChatsParams{
					Since:  c.Timestamp("since"),
					Search: c.String("search"),
				}, true)
				if err != nil {
					return err
				}
				pp.Println(rooms)
				return nil
			}),
		},
		{
			Name:      "show",
			Usage:     "Print a chat",
			ArgsUsage: "<chat>",
			Action: withChat(func(ctx context.Context, _ *cli.Command, chats core.ChatAPI, id int64) error {
				room, err := chats.FetchChat(ctx, id, true)
				if err != nil {
					return err
				}
				pp.Println(room)
				return nil
			}),
		},
		{
			Name:      "messages",
			Usage:     "Print the messages of a chat, oldest first",
			ArgsUsage: "<chat>",
			Action: withChat(func(ctx context.Context, _ *cli.Command, chats core.ChatAPI, id int64) error {
				messages, err := chats.FetchMessages(ctx, id)
				if err != nil {
					return err
				}
				pp.Println(messages)
				return nil
			}),
		},
		{
			Name:      "open",
			Usage:     "Open a chat with a user, or with the volunteers of a group",
			ArgsUsage: "<user|group>",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "mods", Usage: "Talk to the volunteers of the group instead of a user"},
			},
			Action: withChat(func(ctx context.Context, c *cli.Command, chats core.ChatAPI, id int64) error {
				params := fdapi.OpenChatParams{ChatType: fdapi.ChatTypeUser2User, UserID: id}
				if c.Bool("mods") {
					params = fdapi.OpenChatParams{ChatType: fdapi.ChatTypeUser2Mod, GroupID: id}
				}

				chatID, err := chats.OpenChat(ctx, params, true)
				if err != nil {
					return err
				}
				pp.Println(chatID)
				return nil
			}),
		},
		{
			Name:      "send",
			Usage:     "Send a message",
			ArgsUsage: "<chat> <message...>",
			Action: withChat(func(ctx context.Context, c *cli.Command, chats core.ChatAPI, id int64) error {
				message, err := textArg(c, 1, "message")
				if err != nil {
					return err
				}

				msgID, err := chats.Send(ctx, fdapi.SendChatMessage{RoomID: id, Message: message})
				if fdapi.IsBanned(err) {
					return fmt.Errorf("you cannot send messages: %w", err)
				}
				if err != nil {
					return err
				}
				pp.Println(msgID)
				return nil
			}),
		},
		{
			Name:      "read",
			Usage:     "Mark a chat as read, up to the latest message unless one is given",
			ArgsUsage: "<chat> [message]",
			Action: withChat(func(ctx context.Context, c *cli.Command, chats core.ChatAPI, id int64) error {
				if c.Args().Len() > 1 {
					lastMsg, err := idArg(c, 1, "message")
					if err != nil {
						return err
					}
					return chats.MarkRead(ctx, id, lastMsg, true)
				}

				messages, err := chats.FetchMessages(ctx, id)
				if err != nil {
					return err
				}
				if len(messages) == 0 {
					return nil
				}

				last := slices.MaxFunc(messages, func(a, b *fdapi.ChatMessage) int {
					return cmp.Compare(a.ID, b.ID)
				})
				return chats.MarkRead(ctx, id, last.ID, false)
			}),
		},
		{
			Name:      "rsvp",
			Usage:     "Say whether you expect a reply to a message",
			ArgsUsage: "<chat> <message> <yes|no>",
			Action: withChat(func(ctx context.Context, c *cli.Command, chats core.ChatAPI, id int64) error {
				msgID, err := idArg(c, 1, "message")
				if err != nil {
					return err
				}

				var value bool
				switch answer := c.Args().Get(2); answer {
				case "yes":
					value = true
				case "no":
				default:
					return fmt.Errorf("%w: expected yes or no, got %q", ErrInvalidArgs, answer)
				}

				return chats.RSVP(ctx, msgID, id, value)
			}),
		},
		chatAction("nudge", "Remind the other side that you are waiting for a reply", core.ChatAPI.Nudge),
		chatAction("hide", "Hide a chat until a new message arrives", core.ChatAPI.HideChat),
		chatAction("block", "Block a chat", core.ChatAPI.BlockChat),
		chatAction("typing", "Tell the other side you are typing", core.ChatAPI.Typing),
	},
}

func chatAction(name, usage string, fn func(chats core.ChatAPI, ctx context.Context, id int64) error) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<chat>",
		Action: withChat(func(ctx context.Context, _ *cli.Command, chats core.ChatAPI, id int64) error {
			return fn(chats, ctx, id)
		}),
	}
}

func withChat(fn func(ctx context.Context, c *cli.Command, chats core.ChatAPI, id int64) error) cli.ActionFunc {
	return withChats(func(ctx context.Context, c *cli.Command, chats core.ChatAPI) error {
		id, err := idArg(c, 0, "chat")
		if err != nil {
			return err
		}
		return fn(ctx, c, chats, id)
	})
}

func withChats(fn func(ctx context.Context, c *cli.Command, chats core.ChatAPI) error) cli.ActionFunc {
	return withBackend(func(ctx context.Context, c *cli.Command, api *backend.Backend) error {
		return fn(ctx, c, api)
	})
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"freegle/internal/cmd/flags"
	"freegle/internal/config"
	"freegle/pkg/clicfg"
)

const VERSION = "0.1.0"

var cmd = &cli.Command{
	Name:    "freegle",
	Usage:   "Freegle site front, newsfeed and chat client",
	Version: VERSION,
	Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
		if err := initLogger(c.String("log-level"), commandName(c)); err != nil {
			return ctx, err
		}
		return ctx, nil
	},
	Flags: []cli.Flag{
		flags.LogLevel,
		flags.APIv1,
		flags.APIv2,
		flags.JWT,
		flags.Persistent,
	},
	Commands: []*cli.Command{
		siteCmd,
		chitchatCmd,
		chatsCmd,
		archiverCmd,
		migrateCmd,
		replCmd,
	},
}

func Run() {
	// Flags read their defaults from the environment, .env only fills the gaps.
	_ = godotenv.Load(".env")

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// commandName is the full name of the subcommand being run, such as "chitchat watch".
func commandName(c *cli.Command) string {
	args := c.Args().Slice()
	names := []string{}

	cur := c
	for _, arg := range args {
		sub := cur.Command(arg)
		if sub == nil {
			break
		}
		names = append(names, sub.Name)
		cur = sub
	}
	return strings.Join(names, " ")
}

func parseConfig(c *cli.Command) (*config.Config, error) {
	cfg := &config.Config{}
	if err := clicfg.ParseFlags(c, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// run starts the services and blocks until they finish or the process is signalled.
func run(ctx context.Context, cfg *config.Config, services ...pal.ServiceImpl) error {
	services = append(services,
		pal.ProvideConst[*slog.Logger](slog.Default()),
		pal.ProvideConst[*config.Config](cfg),
	)

	return pal.New(services...).
		InitTimeout(5*time.Second).
		HealthCheckTimeout(1*time.Second).
		ShutdownTimeout(10*time.Second).
		Run(ctx, syscall.SIGINT, syscall.SIGTERM)
}

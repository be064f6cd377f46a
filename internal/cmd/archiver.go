package cmd

import (
	"context"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"
	"github.com/zhulik/pal/inspect"

	"freegle/internal/archiving"
	"freegle/internal/cmd/flags"
	"freegle/internal/core"
	"freegle/internal/metrics"
	inats "freegle/internal/nats"
	"freegle/internal/persistence"
	"freegle/internal/persistence/reports"
)

var archiverCmd = &cli.Command{
	Name:  "archiver",
	Usage: "Store CSP reports from NATS in postgres",
	Flags: []cli.Flag{
		flags.NATSURL,
		flags.InitNATS,
		flags.DatabaseURL,
		flags.ArchiveBatchSize,
		flags.MetricsAddr,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		cfg, err := parseConfig(c)
		if err != nil {
			return err
		}

		services := inspect.Provide()
		services = append(services,
			pal.Provide[core.NATS, inats.NATS](),
			pal.Provide[core.DB, persistence.DB](),
			pal.Provide[core.ReportRepository, reports.Repository](),
			pal.Provide[core.ReportsArchiver, archiving.ReportsArchiver](),
			pal.Provide[core.MetricsCollector, metrics.Collector](),
			pal.Provide[core.MetricsServer, metrics.Server](),
		)

		return run(ctx, cfg, services...)
	},
}

var migrateCmd = &cli.Command{
	Name:  "migrate",
	Usage: "Create or update the report archive schema",
	Flags: []cli.Flag{
		flags.DatabaseURL,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		cfg, err := parseConfig(c)
		if err != nil {
			return err
		}

		return run(ctx, cfg,
			pal.Provide[core.DB, persistence.DB](),
			pal.Provide[core.ReportRepository, reports.Repository](),
			pal.Provide[core.MigrationRunner, persistence.MigrationRunner](),
		)
	},
}

var replCmd = &cli.Command{
	Name:  "repl",
	Usage: "Attach to the inspection console of a running service",
	Action: func(ctx context.Context, c *cli.Command) error {
		cfg, err := parseConfig(c)
		if err != nil {
			return err
		}

		return run(ctx, cfg,
			pal.Provide[*inspect.RemoteConsole, inspect.RemoteConsole](),
		)
	},
}

package cmd

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"
	"github.com/zhulik/pal/inspect"

	"freegle/internal/backend"
	"freegle/internal/cmd/flags"
	"freegle/internal/config"
	"freegle/internal/core"
	"freegle/internal/metrics"
	inats "freegle/internal/nats"
	"freegle/internal/site"
)

var ErrNATSRequired = errors.New("NATS is required")

var siteCmd = &cli.Command{
	Name:  "site",
	Usage: "Serve the site: route rules, head, CSP and CSP reports",
	Flags: []cli.Flag{
		flags.SiteAddr,
		flags.SiteConfig,
		flags.AssetsDir,
		flags.PageCache,
		flags.PageCacheSize,
		flags.ReportsPerMinute,
		flags.RenderTimeout,
		flags.Prerender,
		flags.OptionalNATSURL,
		flags.InitNATS,
		flags.MetricsAddr,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		cfg, err := parseConfig(c)
		if err != nil {
			return err
		}

		public, err := config.LoadPublic()
		if err != nil {
			return err
		}

		services, err := siteServices(cfg)
		if err != nil {
			return err
		}

		services = append(services, inspect.Provide()...)
		services = append(services,
			pal.ProvideConst[*config.Public](public),
			pal.Provide[core.MessageAPI, backend.Backend](),
			pal.Provide[core.SiteServer, site.Server](),
			pal.Provide[core.MetricsServer, metrics.Server](),
		)

		return run(ctx, cfg, services...)
	},
}

// siteServices picks the page cache and the report publisher. Both use NATS when it is configured.
func siteServices(cfg *config.Config) ([]pal.ServiceImpl, error) {
	if !cfg.UseNATS() {
		if cfg.PageCache == "nats" {
			return nil, ErrNATSRequired
		}

		cache, err := site.NewMemoryCache(cfg.PageCacheSize)
		if err != nil {
			return nil, err
		}

		return []pal.ServiceImpl{
			pal.ProvideConst[core.PageCache](cache),
			pal.Provide[core.ReportPublisher, site.LogPublisher](),
		}, nil
	}

	services := []pal.ServiceImpl{
		pal.Provide[core.NATS, inats.NATS](),
		pal.Provide[core.ReportPublisher, inats.ReportPublisher](),
	}

	if cfg.PageCache == "nats" {
		return append(services, pal.Provide[core.PageCache, inats.PageCache]()), nil
	}

	cache, err := site.NewMemoryCache(cfg.PageCacheSize)
	if err != nil {
		return nil, err
	}
	return append(services, pal.ProvideConst[core.PageCache](cache)), nil
}

package flags

import (
	"fmt"
	"slices"
	"time"

	libnats "github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"

	"freegle/pkg/fdapi"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

var validPageCaches = []string{"memory", "nats"}

func oneOf(name string, allowed []string) func(string) error {
	return func(value string) error {
		if !slices.Contains(allowed, value) {
			return fmt.Errorf("invalid %s: %s, allowed values are: %s", name, value, allowed)
		}
		return nil
	}
}

var LogLevel = &cli.StringFlag{
	Name:      "log-level",
	Aliases:   []string{"l"},
	Usage:     "The level of the logs",
	Value:     "info",
	Validator: oneOf("log level", validLogLevels),
	Sources:   cli.EnvVars("LOG_LEVEL"),
}

var APIv1 = &cli.StringFlag{
	Name:    "api-v1",
	Usage:   "Base URL of the v1 API",
	Value:   fdapi.DefaultConfig.APIv1,
	Sources: cli.EnvVars("APIv1", "API_V1"),
}

var APIv2 = &cli.StringFlag{
	Name:    "api-v2",
	Usage:   "Base URL of the v2 API",
	Value:   fdapi.DefaultConfig.APIv2,
	Sources: cli.EnvVars("APIv2", "API_V2"),
}

var JWT = &cli.StringFlag{
	Name:    "jwt",
	Usage:   "Session JWT",
	Sources: cli.EnvVars("FREEGLE_JWT"),
}

var Persistent = &cli.StringFlag{
	Name:    "persistent",
	Usage:   "Persistent session token as JSON: {\"id\":..,\"series\":..,\"token\":..}",
	Sources: cli.EnvVars("FREEGLE_PERSISTENT"),
}

var NATSURL = &cli.StringFlag{
	Name:    "nats-url",
	Aliases: []string{"n"},
	Usage:   "The URL of the NATS server",
	Value:   libnats.DefaultURL,
	Sources: cli.EnvVars("NATS_URL"),
}

// OptionalNATSURL is NATSURL for commands that can run without NATS.
var OptionalNATSURL = &cli.StringFlag{
	Name:    "nats-url",
	Aliases: []string{"n"},
	Usage:   "The URL of the NATS server, leave empty to run without it",
	Sources: cli.EnvVars("NATS_URL"),
}

var InitNATS = &cli.BoolFlag{
	Name:        "nats-init",
	Aliases:     []string{"i"},
	Usage:       "Initialize the NATS server: create streams, consumers, etc.",
	DefaultText: "false",
	Value:       false,
	Sources:     cli.EnvVars("NATS_INIT"),
}

var DatabaseURL = &cli.StringFlag{
	Name:     "database-url",
	Usage:    "Postgres connection string",
	Required: true,
	Sources:  cli.EnvVars("DATABASE_URL"),
}

var MetricsAddr = &cli.StringFlag{
	Name:    "metrics-addr",
	Usage:   "Listen address of the metrics server",
	Value:   ":8080",
	Sources: cli.EnvVars("METRICS_ADDR"),
}

var SiteAddr = &cli.StringFlag{
	Name:    "site-addr",
	Usage:   "Listen address of the site",
	Value:   ":3000",
	Sources: cli.EnvVars("SITE_ADDR", "PORT"),
}

var SiteConfig = &cli.StringFlag{
	Name:    "site-config",
	Usage:   "YAML file with route rules, head and CSP, the built-in defaults are used when empty",
	Sources: cli.EnvVars("SITE_CONFIG"),
}

var AssetsDir = &cli.StringFlag{
	Name:    "assets-dir",
	Usage:   "Directory served below /_nuxt/",
	Value:   "./public/_nuxt",
	Sources: cli.EnvVars("ASSETS_DIR"),
}

var PageCache = &cli.StringFlag{
	Name:      "page-cache",
	Usage:     "Where rendered pages are cached",
	Value:     "memory",
	Validator: oneOf("page cache", validPageCaches),
	Sources:   cli.EnvVars("PAGE_CACHE"),
}

var PageCacheSize = &cli.IntFlag{
	Name:    "page-cache-size",
	Usage:   "Number of pages kept by the memory cache",
	Value:   1024,
	Sources: cli.EnvVars("PAGE_CACHE_SIZE"),
}

var ReportsPerMinute = &cli.IntFlag{
	Name:    "reports-per-minute",
	Usage:   "CSP reports accepted per minute",
	Value:   600,
	Sources: cli.EnvVars("REPORTS_PER_MINUTE"),
}

var RenderTimeout = &cli.DurationFlag{
	Name:    "render-timeout",
	Usage:   "How long a page may wait for the backend",
	Value:   5 * time.Second,
	Sources: cli.EnvVars("RENDER_TIMEOUT"),
}

var Prerender = &cli.StringSliceFlag{
	Name:    "prerender",
	Usage:   "Extra routes to prerender at startup",
	Sources: cli.EnvVars("PRERENDER"),
}

var NewsfeedInterval = &cli.DurationFlag{
	Name:    "newsfeed-interval",
	Usage:   "How often the newsfeed is polled",
	Value:   30 * time.Second,
	Sources: cli.EnvVars("NEWSFEED_INTERVAL"),
}

var NewsfeedDistance = &cli.StringFlag{
	Name:    "newsfeed-distance",
	Usage:   "Feed distance: metres, nearby or anywhere",
	Value:   "nearby",
	Sources: cli.EnvVars("NEWSFEED_DISTANCE"),
}

var NewsfeedThreads = &cli.IntFlag{
	Name:    "newsfeed-threads",
	Usage:   "Threads fetched concurrently by the watcher",
	Value:   4,
	Sources: cli.EnvVars("NEWSFEED_THREADS"),
}

var ArchiveBatchSize = &cli.IntFlag{
	Name:    "archive-batch-size",
	Usage:   "Reports inserted per transaction",
	Value:   50,
	Sources: cli.EnvVars("ARCHIVE_BATCH_SIZE"),
}

package config

import "time"

type Config struct {
	LogLevel string `flag:"log-level"`

	APIv1      string `flag:"api-v1"`
	APIv2      string `flag:"api-v2"`
	JWT        string `flag:"jwt"`
	Persistent string `flag:"persistent"`

	NATSURL  string `flag:"nats-url"`
	NATSInit bool   `flag:"nats-init"`

	DatabaseURL string `flag:"database-url"`

	MetricsAddr string `flag:"metrics-addr"`

	SiteAddr       string        `flag:"site-addr"`
	SiteConfig     string        `flag:"site-config"`
	AssetsDir      string        `flag:"assets-dir"`
	PageCache      string        `flag:"page-cache"`
	PageCacheSize  int           `flag:"page-cache-size"`
	ReportsPerMin  int           `flag:"reports-per-minute"`
	RenderTimeout  time.Duration `flag:"render-timeout"`
	PrerenderExtra []string      `flag:"prerender"`

	NewsfeedInterval time.Duration `flag:"newsfeed-interval"`
	NewsfeedDistance string        `flag:"newsfeed-distance"`
	NewsfeedThreads  int           `flag:"newsfeed-threads"`

	ArchiveBatchSize int `flag:"archive-batch-size"`
}

// UseNATS reports whether a NATS server was configured.
func (c *Config) UseNATS() bool {
	return c.NATSURL != ""
}

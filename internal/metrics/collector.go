package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm/schema"

	"freegle/internal/core"
)

const collectInterval = 15 * time.Second

var (
	tableCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "freegle_table_estimated_count",
		Help: "Estimated record count for a table.",
	}, []string{"table"})
)

// Collector exports table sizes of the archive database.
type Collector struct {
	Logger *slog.Logger
	DB     core.DB
}

func (c *Collector) Init(_ context.Context) error {
	c.Logger = c.Logger.With("component", "metrics.Collector")
	return nil
}

func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(collectInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Logger.Debug("Collecting metrics")
			if err := c.collectTableEstimatedCount(ctx, core.CSPReportModel{}); err != nil {
				c.Logger.Error("failed to collect table count", "error", err)
			}
		}
	}
}

func (c *Collector) collectTableEstimatedCount(ctx context.Context, tabler schema.Tabler) error {
	var count int64
	err := c.DB.Conn(ctx).Raw(
		`SELECT reltuples::bigint AS count
				FROM pg_class
				WHERE relname = ?`, tabler.TableName(),
	).Scan(&count).Error
	if err != nil {
		return err
	}

	tableCount.WithLabelValues(tabler.TableName()).Set(float64(count))
	return nil
}

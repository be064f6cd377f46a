package archiving

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	"github.com/zhulik/pips"
	"github.com/zhulik/pips/apply"

	"freegle/internal/config"
	"freegle/internal/core"
	inats "freegle/internal/nats"
)

const defaultBatchSize = 50

var (
	reportsArchived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freegle_csp_reports_archived_total",
		Help: "CSP reports handled by the archiver, by result.",
	}, []string{"result"})
)

// ReportsArchiver moves CSP reports from the stream into postgres. Messages are acked only after
// their batch is stored.
type ReportsArchiver struct {
	Logger  *slog.Logger
	Config  *config.Config
	NATS    core.NATS
	Reports core.ReportRepository
}

func (a *ReportsArchiver) Init(_ context.Context) error {
	a.Logger = a.Logger.With("component", "archiving.ReportsArchiver")
	return nil
}

func (a *ReportsArchiver) Run(ctx context.Context) error {
	ch, err := a.NATS.Consume(ctx, inats.ArchiverConsumer)
	if err != nil {
		return err
	}

	batchSize := a.Config.ArchiveBatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	a.Logger.Info("Archiving CSP reports", "batch_size", batchSize)

	err = pips.New[jetstream.Msg, any]().
		Then(apply.Batch[jetstream.Msg](batchSize)).
		Then(
			apply.Map(func(ctx context.Context, msgs []jetstream.Msg) ([]jetstream.Msg, error) {
				return msgs, a.Archive(ctx, msgs...)
			}),
		).
		Run(ctx, ch).
		Wait(ctx)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Archive stores the reports carried by msgs and acks them. Undecodable messages are terminated so
// they are not redelivered.
func (a *ReportsArchiver) Archive(ctx context.Context, msgs ...jetstream.Msg) error {
	valid := make([]jetstream.Msg, 0, len(msgs))
	models := make([]*core.CSPReportModel, 0, len(msgs))

	for _, msg := range msgs {
		report := &core.CSPReport{}
		if err := json.Unmarshal(msg.Data(), report); err != nil || report.ID == "" {
			a.Logger.Warn("dropping malformed report", "error", err)
			reportsArchived.WithLabelValues("malformed").Inc()
			if err := msg.Term(); err != nil {
				a.Logger.Error("failed to terminate message", "error", err)
			}
			continue
		}

		valid = append(valid, msg)
		models = append(models, core.NewCSPReportModel(report))
	}

	if err := a.Reports.Insert(ctx, models...); err != nil {
		lo.ForEach(valid, func(msg jetstream.Msg, _ int) {
			msg.Nak() //nolint:errcheck
		})
		reportsArchived.WithLabelValues("failed").Add(float64(len(valid)))
		return err
	}

	for _, msg := range valid {
		if err := msg.Ack(); err != nil {
			return err
		}
	}

	reportsArchived.WithLabelValues("archived").Add(float64(len(valid)))
	a.Logger.Debug("archived reports", "count", len(valid))

	return nil
}

package nats

import (
	"context"
	"encoding/json"

	"freegle/internal/core"
)

var _ core.ReportPublisher = (*ReportPublisher)(nil)

// ReportPublisher forwards CSP reports to the stream, the archiver stores them.
type ReportPublisher struct {
	NATS core.NATS
}

func (p *ReportPublisher) Publish(ctx context.Context, report *core.CSPReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return p.NATS.Publish(ctx, ReportsSubject, payload, report.ID)
}

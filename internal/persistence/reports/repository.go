package reports

import (
	"context"
	"log/slog"

	"freegle/internal/core"
	"freegle/internal/persistence"
)

var _ core.ReportRepository = (*Repository)(nil)

type Repository struct {
	Logger *slog.Logger
	DB     core.DB
}

func (r *Repository) Init(_ context.Context) error {
	r.Logger = r.Logger.With("component", "reports.Repository")
	return nil
}

// Insert stores reports. Reports already stored, e.g. redelivered messages, are skipped.
func (r *Repository) Insert(ctx context.Context, reports ...*core.CSPReportModel) error {
	if len(reports) == 0 {
		return nil
	}

	err := r.DB.Conn(ctx).Create(reports).Error
	if err == nil || !persistence.IsDuplicateKeyError(err) {
		return err
	}

	// One duplicate fails the whole batch, store the rest one by one.
	skipped := 0
	for _, report := range reports {
		if err := r.DB.Conn(ctx).Create(report).Error; err != nil {
			if !persistence.IsDuplicateKeyError(err) {
				return err
			}
			skipped++
		}
	}

	r.Logger.Debug("skipped duplicate reports", "count", skipped)
	return nil
}

func (r *Repository) Migrate(ctx context.Context) error {
	return r.DB.Conn(ctx).AutoMigrate(&core.CSPReportModel{})
}

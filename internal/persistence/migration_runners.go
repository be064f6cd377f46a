package persistence

import (
	"context"
	"log/slog"

	"freegle/internal/core"
)

// MigrationRunner creates or updates the schema and exits.
type MigrationRunner struct {
	Logger  *slog.Logger
	Reports core.ReportRepository
}

func (m *MigrationRunner) Run(ctx context.Context) error {
	m.Logger.Info("Migrating database")

	if err := m.Reports.Migrate(ctx); err != nil {
		return err
	}

	m.Logger.Info("Database migration completed")
	return nil
}

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sloscope/server/pkg/telemetry/aggregates"
)

type loadGeneration struct {
	ID              string `db:"id"`
	ServiceAccepted int    `db:"service_accepted"`
	ServiceRejected int    `db:"service_rejected"`
	ErrorAccepted   int    `db:"error_accepted"`
	ErrorRejected   int    `db:"error_rejected"`
	CreatedAt       string `db:"created_at"`
}

// ArchiveLoad records one accepted load generation.
func (d *Database) ArchiveLoad(ctx context.Context, report aggregates.LoadReport) error {
	_, err := d.db.NamedExecContext(ctx,
		`INSERT INTO load_generation (id, service_accepted, service_rejected, error_accepted, error_rejected, created_at)
		 VALUES (:id, :service_accepted, :service_rejected, :error_accepted, :error_rejected, :created_at)`,
		loadGeneration{
			ID:              report.Generation,
			ServiceAccepted: report.ServiceAccepted,
			ServiceRejected: report.ServiceRejected,
			ErrorAccepted:   report.ErrorAccepted,
			ErrorRejected:   report.ErrorRejected,
			CreatedAt:       report.LoadedAt.Format(time.RFC3339),
		})
	if err != nil {
		return fmt.Errorf("fail to archive load generation %s: %w", report.Generation, err)
	}
	return nil
}

// CountLoadGenerations returns the number of archived generations.
func (d *Database) CountLoadGenerations(ctx context.Context) (int, error) {
	var count int
	if err := d.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM load_generation"); err != nil {
		return 0, fmt.Errorf("fail to count load generations: %w", err)
	}
	return count, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const createTableQuery = `
	CREATE TABLE IF NOT EXISTS portfolio_metrics (
		name          TEXT PRIMARY KEY,
		return_3y     DOUBLE PRECISION,
		std_dev       DOUBLE PRECISION NOT NULL,
		alpha         DOUBLE PRECISION,
		beta          DOUBLE PRECISION,
		sharpe_ratio  DOUBLE PRECISION NOT NULL,
		max_drawdown  DOUBLE PRECISION NOT NULL,
		up_capture    DOUBLE PRECISION,
		down_capture  DOUBLE PRECISION,
		is_benchmark  BOOLEAN NOT NULL DEFAULT FALSE,
		as_of_date    TEXT NOT NULL,
		updated_by    TEXT NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`

// EnsureSchema creates the metrics table if it does not exist yet.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, createTableQuery); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

package repositories

import (
	"context"

	"clockwise-api/internal/models"
)

// MetricsRepository persists per-portfolio performance metric rows.
type MetricsRepository interface {
	// Upsert inserts or replaces the metric row for a portfolio name.
	Upsert(ctx context.Context, record *models.MetricsRecord) error

	// UpsertBatch upserts all records in one transaction.
	UpsertBatch(ctx context.Context, records []*models.MetricsRecord) error

	// GetAll returns all metric rows, benchmark first, then by name.
	GetAll(ctx context.Context) ([]*models.MetricsRecord, error)

	// GetByName returns the metric row for one portfolio.
	GetByName(ctx context.Context, name string) (*models.MetricsRecord, error)

	// DeleteByName removes the metric row for one portfolio.
	DeleteByName(ctx context.Context, name string) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error
}

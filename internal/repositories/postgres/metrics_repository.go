package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"clockwise-api/internal/models"
	"clockwise-api/internal/repositories"
)

var ErrNotFound = errors.New("metrics record not found")

const upsertQuery = `
	INSERT INTO portfolio_metrics (
		name, return_3y, std_dev, alpha, beta, sharpe_ratio, max_drawdown,
		up_capture, down_capture, is_benchmark, as_of_date, updated_by, updated_at
	) VALUES (
		:name, :return_3y, :std_dev, :alpha, :beta, :sharpe_ratio, :max_drawdown,
		:up_capture, :down_capture, :is_benchmark, :as_of_date, :updated_by, :updated_at
	)
	ON CONFLICT (name) DO UPDATE SET
		return_3y    = EXCLUDED.return_3y,
		std_dev      = EXCLUDED.std_dev,
		alpha        = EXCLUDED.alpha,
		beta         = EXCLUDED.beta,
		sharpe_ratio = EXCLUDED.sharpe_ratio,
		max_drawdown = EXCLUDED.max_drawdown,
		up_capture   = EXCLUDED.up_capture,
		down_capture = EXCLUDED.down_capture,
		is_benchmark = EXCLUDED.is_benchmark,
		as_of_date   = EXCLUDED.as_of_date,
		updated_by   = EXCLUDED.updated_by,
		updated_at   = EXCLUDED.updated_at`

// MetricsRepository is the Postgres implementation backed by sqlx.
type MetricsRepository struct {
	db *sqlx.DB
}

func NewMetricsRepository(db *sqlx.DB) repositories.MetricsRepository {
	return &MetricsRepository{db: db}
}

func (r *MetricsRepository) Upsert(ctx context.Context, record *models.MetricsRecord) error {
	if _, err := r.db.NamedExecContext(ctx, upsertQuery, record); err != nil {
		return fmt.Errorf("failed to upsert metrics for %s: %w", record.Name, err)
	}
	return nil
}

func (r *MetricsRepository) UpsertBatch(ctx context.Context, records []*models.MetricsRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, record := range records {
		if _, err := tx.NamedExecContext(ctx, upsertQuery, record); err != nil {
			return fmt.Errorf("failed to upsert metrics for %s: %w", record.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit metrics batch: %w", err)
	}
	return nil
}

func (r *MetricsRepository) GetAll(ctx context.Context) ([]*models.MetricsRecord, error) {
	var records []*models.MetricsRecord
	query := `SELECT * FROM portfolio_metrics ORDER BY is_benchmark DESC, name ASC`
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("failed to list metrics: %w", err)
	}
	return records, nil
}

func (r *MetricsRepository) GetByName(ctx context.Context, name string) (*models.MetricsRecord, error) {
	var record models.MetricsRecord
	query := `SELECT * FROM portfolio_metrics WHERE name = $1`
	if err := r.db.GetContext(ctx, &record, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get metrics for %s: %w", name, err)
	}
	return &record, nil
}

func (r *MetricsRepository) DeleteByName(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM portfolio_metrics WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete metrics for %s: %w", name, err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MetricsRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

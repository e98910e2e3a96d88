package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"clockwise-api/internal/config"
)

// Postgres wraps the sqlx connection pool.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres opens and pings a Postgres connection pool.
func NewPostgres(cfg config.DatabaseConfig) (*Postgres, error) {
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open Postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ConnectTimeout)*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping Postgres: %w", err)
	}

	return &Postgres{db: db}, nil
}

// DB exposes the underlying sqlx handle for repositories.
func (p *Postgres) DB() *sqlx.DB {
	return p.db
}

// Ping verifies the connection is alive.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

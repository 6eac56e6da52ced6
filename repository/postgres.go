package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"crypto-portfolio/holdings"
	"crypto-portfolio/observability"
)

const backendPostgres = "postgres"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS portfolio_state (
	name       TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Repository stores portfolio state blobs in PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with a PostgreSQL connection pool
// and ensures the state table exists
func NewRepository(ctx context.Context, connString string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate portfolio_state: %w", err)
	}

	return &Repository{pool: pool}, nil
}

// Load implements holdings.Persister
func (r *Repository) Load(ctx context.Context, name string) ([]byte, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("load_state", backendPostgres)

	var data []byte
	err := r.pool.QueryRow(ctx,
		`SELECT data FROM portfolio_state WHERE name = $1`, name).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, holdings.ErrNoState
	}
	if err != nil {
		metrics.RecordDBError("load_state", backendPostgres)
		return nil, fmt.Errorf("failed to query state %s: %w", name, err)
	}
	return data, nil
}

// Save implements holdings.Persister
func (r *Repository) Save(ctx context.Context, name string, data []byte) error {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("save_state", backendPostgres)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO portfolio_state (name, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name)
		DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, name, data)
	if err != nil {
		metrics.RecordDBError("save_state", backendPostgres)
		return fmt.Errorf("failed to save state %s: %w", name, err)
	}
	return nil
}

// Close closes the database connection pool
func (r *Repository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

// Health checks if the database connection is healthy
func (r *Repository) Health(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

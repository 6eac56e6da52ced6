package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"crypto-portfolio/holdings"
	"crypto-portfolio/observability"
)

const backendSQLite = "sqlite"

// SQLite stores portfolio state blobs in a local SQLite database
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and runs migrations
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; the store serializes saves anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	observability.Info("sqlite state store opened", "path", path)
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS portfolio_state (
		name       TEXT PRIMARY KEY,
		data       BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`)
	return err
}

// Load implements holdings.Persister
func (s *SQLite) Load(ctx context.Context, name string) ([]byte, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("load_state", backendSQLite)

	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM portfolio_state WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, holdings.ErrNoState
	}
	if err != nil {
		metrics.RecordDBError("load_state", backendSQLite)
		return nil, fmt.Errorf("failed to query state %s: %w", name, err)
	}
	return data, nil
}

// Save implements holdings.Persister
func (s *SQLite) Save(ctx context.Context, name string, data []byte) error {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("save_state", backendSQLite)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portfolio_state (name, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, name, data, time.Now().Unix())
	if err != nil {
		metrics.RecordDBError("save_state", backendSQLite)
		return fmt.Errorf("failed to save state %s: %w", name, err)
	}
	return nil
}

// Health checks that the database is reachable
func (s *SQLite) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}

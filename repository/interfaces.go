package repository

import (
	"context"

	"crypto-portfolio/holdings"
)

// StateRepository is a database-backed holdings persister
type StateRepository interface {
	holdings.Persister

	Health(ctx context.Context) error
	Close() error
}

// Compile-time interface verification
var (
	_ StateRepository = (*Repository)(nil)
	_ StateRepository = (*SQLite)(nil)
)

// Package store holds prepared contract rows and answers filter and
// aggregate queries over them. Two backends implement the same
// interface: an in-memory slice scan for ordinary datasets and a
// DuckDB-backed table for datasets beyond RAM comfort.
package store

import (
	"context"

	"github.com/debt-dashboard/backend/internal/models"
)

// Store answers read-only queries over one immutable dataset snapshot.
// Every method is a pure function of the snapshot and its arguments;
// an empty filter result is a valid answer, not an error.
type Store interface {
	// Len returns the total number of prepared rows.
	Len() int
	// Contracts returns the filtered rows for one page plus the total
	// number of matching rows.
	Contracts(ctx context.Context, spec *models.FilterSpec, page, pageSize int) ([]models.Contract, int, error)
	// Summary computes the aggregates for the filtered subset.
	Summary(ctx context.Context, spec *models.FilterSpec) (*models.Summary, error)
	// Options returns the distinct values offered to the filter widgets.
	Options(ctx context.Context) (*models.FilterOptions, error)
	// Close releases backend resources.
	Close() error
}

// Backend names accepted in the configuration.
const (
	BackendMemory = "memory"
	BackendDuckDB = "duckdb"
)

// Package store persists resale listings and scoring runs. Two
// implementations exist: SQLite for single-machine CLI use and
// PostgreSQL for shared deployments.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/flatfind-sg/flatfind-cli/internal/dataset"
)

// ListingFilter specifies criteria for listing queries.
type ListingFilter struct {
	Towns    []string `json:"towns,omitempty"`
	FlatType string   `json:"flat_type,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

// ScoreRun is one persisted scoring invocation. Results stay as raw
// JSON so the store does not depend on the scorer's result shape.
type ScoreRun struct {
	ID          string          `json:"id"`
	Fingerprint string          `json:"fingerprint"`
	FlatType    string          `json:"flat_type"`
	Towns       []string        `json:"towns"`
	Weights     json.RawMessage `json:"weights"`
	Results     json.RawMessage `json:"results"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Store defines the persistence interface.
type Store interface {
	// Listings
	UpsertListings(ctx context.Context, rows []dataset.FlatRow) (int, error)
	ListListings(ctx context.Context, filter ListingFilter) ([]dataset.FlatRow, error)
	DistinctTowns(ctx context.Context) ([]string, error)

	// Score runs
	SaveScoreRun(ctx context.Context, run *ScoreRun) error
	GetScoreRun(ctx context.Context, id string) (*ScoreRun, error)
	ListScoreRuns(ctx context.Context, limit int) ([]ScoreRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the given driver ("sqlite" or "postgres").
// The pool config tunes the postgres connection pool; sqlite ignores
// it. Nil keeps the pool defaults.
func Open(ctx context.Context, driver, dsn string, pool *PoolConfig) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, pool)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/flatfind-sg/flatfind-cli/internal/dataset"
	"github.com/flatfind-sg/flatfind-cli/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_score_run":  `SELECT id, fingerprint, flat_type, towns, weights, results, created_at FROM score_runs WHERE id = $1`,
	"save_score_run": `INSERT INTO score_runs (id, fingerprint, flat_type, towns, weights, results, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"distinct_towns": `SELECT DISTINCT town FROM listings ORDER BY town`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS listings (
	key             TEXT PRIMARY KEY,
	town            TEXT NOT NULL,
	block           TEXT NOT NULL,
	street_name     TEXT NOT NULL,
	flat_type       TEXT NOT NULL,
	month           TEXT NOT NULL,
	resale_price    TEXT NOT NULL,
	remaining_lease TEXT,
	imported_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS score_runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	fingerprint TEXT NOT NULL,
	flat_type   TEXT NOT NULL,
	towns       JSONB NOT NULL,
	weights     JSONB NOT NULL,
	results     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_listings_town ON listings(town);
CREATE INDEX IF NOT EXISTS idx_listings_flat_type ON listings(flat_type);
CREATE INDEX IF NOT EXISTS idx_score_runs_fingerprint ON score_runs(fingerprint);
CREATE INDEX IF NOT EXISTS idx_score_runs_created_at ON score_runs(created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var listingColumns = []string{"key", "town", "block", "street_name", "flat_type", "month", "resale_price", "remaining_lease", "imported_at"}

func (s *PostgresStore) UpsertListings(ctx context.Context, rows []dataset.FlatRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	values := make([][]any, 0, len(rows))
	for _, r := range rows {
		values = append(values, []any{
			r.Key(), r.Town, r.Block, r.StreetName, r.FlatType, r.Month, r.ResalePrice, r.RemainingLease, now,
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "listings",
		Columns:      listingColumns,
		ConflictKeys: []string{"key"},
	}, values)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert listings")
	}
	return int(n), nil
}

func (s *PostgresStore) ListListings(ctx context.Context, filter ListingFilter) ([]dataset.FlatRow, error) {
	query := `SELECT town, block, street_name, flat_type, month, resale_price, remaining_lease FROM listings WHERE 1=1`
	var args []any

	if len(filter.Towns) > 0 {
		args = append(args, filter.Towns)
		query += ` AND town = ANY($1)`
	}
	if filter.FlatType != "" {
		args = append(args, filter.FlatType)
		query += fmt.Sprintf(` AND flat_type = $%d`, len(args))
	}
	query += ` ORDER BY town, block, street_name, month`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	pgRows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list listings")
	}
	defer pgRows.Close()

	var out []dataset.FlatRow
	for pgRows.Next() {
		var r dataset.FlatRow
		var lease *string
		if err := pgRows.Scan(&r.Town, &r.Block, &r.StreetName, &r.FlatType, &r.Month, &r.ResalePrice, &lease); err != nil {
			return nil, eris.Wrap(err, "postgres: scan listing")
		}
		if lease != nil {
			r.RemainingLease = *lease
		}
		out = append(out, r)
	}
	return out, eris.Wrap(pgRows.Err(), "postgres: list listings iterate")
}

func (s *PostgresStore) DistinctTowns(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT town FROM listings ORDER BY town`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: distinct towns")
	}
	defer rows.Close()

	var towns []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, eris.Wrap(err, "postgres: scan town")
		}
		towns = append(towns, t)
	}
	return towns, eris.Wrap(rows.Err(), "postgres: distinct towns iterate")
}

func (s *PostgresStore) SaveScoreRun(ctx context.Context, run *ScoreRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	townsJSON, err := json.Marshal(run.Towns)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal towns")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO score_runs (id, fingerprint, flat_type, towns, weights, results, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.Fingerprint, run.FlatType, townsJSON, []byte(run.Weights), []byte(run.Results), run.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert score run %s", run.ID)
}

func (s *PostgresStore) GetScoreRun(ctx context.Context, id string) (*ScoreRun, error) {
	var run ScoreRun
	var townsJSON, weights, results []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, fingerprint, flat_type, towns, weights, results, created_at FROM score_runs WHERE id = $1`,
		id,
	).Scan(&run.ID, &run.Fingerprint, &run.FlatType, &townsJSON, &weights, &results, &run.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("score run not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get score run %s", id)
	}

	if err := json.Unmarshal(townsJSON, &run.Towns); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal towns")
	}
	run.Weights = json.RawMessage(weights)
	run.Results = json.RawMessage(results)
	return &run, nil
}

func (s *PostgresStore) ListScoreRuns(ctx context.Context, limit int) ([]ScoreRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, fingerprint, flat_type, towns, weights, results, created_at FROM score_runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list score runs")
	}
	defer rows.Close()

	var runs []ScoreRun
	for rows.Next() {
		var run ScoreRun
		var townsJSON, weights, results []byte
		if err := rows.Scan(&run.ID, &run.Fingerprint, &run.FlatType, &townsJSON, &weights, &results, &run.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan score run")
		}
		if err := json.Unmarshal(townsJSON, &run.Towns); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal towns")
		}
		run.Weights = json.RawMessage(weights)
		run.Results = json.RawMessage(results)
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list score runs iterate")
}

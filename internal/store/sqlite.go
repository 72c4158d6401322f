package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/flatfind-sg/flatfind-cli/internal/dataset"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS listings (
	key             TEXT PRIMARY KEY,
	town            TEXT NOT NULL,
	block           TEXT NOT NULL,
	street_name     TEXT NOT NULL,
	flat_type       TEXT NOT NULL,
	month           TEXT NOT NULL,
	resale_price    TEXT NOT NULL,
	remaining_lease TEXT,
	imported_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS score_runs (
	id          TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	flat_type   TEXT NOT NULL,
	towns       TEXT NOT NULL,
	weights     TEXT NOT NULL,
	results     TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_listings_town ON listings(town);
CREATE INDEX IF NOT EXISTS idx_listings_flat_type ON listings(flat_type);
CREATE INDEX IF NOT EXISTS idx_score_runs_fingerprint ON score_runs(fingerprint);
CREATE INDEX IF NOT EXISTS idx_score_runs_created_at ON score_runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertListings(ctx context.Context, rows []dataset.FlatRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO listings (key, town, block, street_name, flat_type, month, resale_price, remaining_lease, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			resale_price = excluded.resale_price,
			remaining_lease = excluded.remaining_lease,
			imported_at = excluded.imported_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	count := 0
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			r.Key(), r.Town, r.Block, r.StreetName, r.FlatType, r.Month, r.ResalePrice, r.RemainingLease, now,
		); err != nil {
			return count, eris.Wrapf(err, "sqlite: upsert listing %s", r.Key())
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return count, eris.Wrap(err, "sqlite: commit upsert")
	}
	return count, nil
}

func (s *SQLiteStore) ListListings(ctx context.Context, filter ListingFilter) ([]dataset.FlatRow, error) {
	query := `SELECT town, block, street_name, flat_type, month, resale_price, remaining_lease FROM listings WHERE 1=1`
	var args []any

	if len(filter.Towns) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.Towns)), ",")
		query += fmt.Sprintf(` AND town IN (%s)`, placeholders)
		for _, t := range filter.Towns {
			args = append(args, t)
		}
	}
	if filter.FlatType != "" {
		query += ` AND flat_type = ?`
		args = append(args, filter.FlatType)
	}
	query += ` ORDER BY town, block, street_name, month`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	sqlRows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list listings")
	}
	defer sqlRows.Close()

	var out []dataset.FlatRow
	for sqlRows.Next() {
		var r dataset.FlatRow
		var lease sql.NullString
		if err := sqlRows.Scan(&r.Town, &r.Block, &r.StreetName, &r.FlatType, &r.Month, &r.ResalePrice, &lease); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan listing")
		}
		r.RemainingLease = lease.String
		out = append(out, r)
	}
	return out, eris.Wrap(sqlRows.Err(), "sqlite: list listings iterate")
}

func (s *SQLiteStore) DistinctTowns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT town FROM listings ORDER BY town`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: distinct towns")
	}
	defer rows.Close()

	var towns []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan town")
		}
		towns = append(towns, t)
	}
	return towns, eris.Wrap(rows.Err(), "sqlite: distinct towns iterate")
}

func (s *SQLiteStore) SaveScoreRun(ctx context.Context, run *ScoreRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	townsJSON, err := json.Marshal(run.Towns)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal towns")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO score_runs (id, fingerprint, flat_type, towns, weights, results, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Fingerprint, run.FlatType, string(townsJSON), string(run.Weights), string(run.Results), run.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert score run %s", run.ID)
}

func (s *SQLiteStore) GetScoreRun(ctx context.Context, id string) (*ScoreRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, fingerprint, flat_type, towns, weights, results, created_at FROM score_runs WHERE id = ?`,
		id,
	)
	run, err := scanScoreRun(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("score run not found: %s", id)
	}
	return run, err
}

func (s *SQLiteStore) ListScoreRuns(ctx context.Context, limit int) ([]ScoreRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fingerprint, flat_type, towns, weights, results, created_at FROM score_runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list score runs")
	}
	defer rows.Close()

	var runs []ScoreRun
	for rows.Next() {
		run, err := scanScoreRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list score runs iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanScoreRun(row scannable) (*ScoreRun, error) {
	var run ScoreRun
	var townsJSON, weights, results string

	err := row.Scan(&run.ID, &run.Fingerprint, &run.FlatType, &townsJSON, &weights, &results, &run.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan score run")
	}

	if err := json.Unmarshal([]byte(townsJSON), &run.Towns); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal towns")
	}
	run.Weights = json.RawMessage(weights)
	run.Results = json.RawMessage(results)
	return &run, nil
}

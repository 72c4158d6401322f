package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flatfind-sg/flatfind-cli/internal/dataset"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetScoreRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, fingerprint, flat_type, towns, weights, results, created_at FROM score_runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetScoreRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetScoreRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, fingerprint, flat_type, towns, weights, results, created_at FROM score_runs`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "fingerprint", "flat_type", "towns", "weights", "results", "created_at"},
		).AddRow("run-1", "fp", "4 ROOM", []byte(`["BEDOK"]`), []byte(`{}`), []byte(`[]`), created))

	run, err := s.GetScoreRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"BEDOK"}, run.Towns)
	assert.Equal(t, created, run.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveScoreRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO score_runs`).
		WithArgs(pgxmock.AnyArg(), "fp", "4 ROOM", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run := &ScoreRun{
		Fingerprint: "fp",
		FlatType:    "4 ROOM",
		Towns:       []string{"BEDOK"},
		Weights:     json.RawMessage(`{}`),
		Results:     json.RawMessage(`[]`),
	}
	require.NoError(t, s.SaveScoreRun(context.Background(), run))
	assert.NotEmpty(t, run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertListings(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_listings"}, listingColumns).WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "listings" .* ON CONFLICT`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := s.UpsertListings(context.Background(), []dataset.FlatRow{
		{Town: "BEDOK", Block: "1", StreetName: "X", FlatType: "4 ROOM", Month: "2024-01", ResalePrice: "400000"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DistinctTowns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT DISTINCT town FROM listings`).
		WillReturnRows(pgxmock.NewRows([]string{"town"}).AddRow("ANG MO KIO").AddRow("BEDOK"))

	towns, err := s.DistinctTowns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ANG MO KIO", "BEDOK"}, towns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListListings(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	lease := "70 years"
	mock.ExpectQuery(`SELECT town, block, street_name, flat_type, month, resale_price, remaining_lease FROM listings`).
		WithArgs([]string{"BEDOK"}, "4 ROOM").
		WillReturnRows(pgxmock.NewRows(
			[]string{"town", "block", "street_name", "flat_type", "month", "resale_price", "remaining_lease"},
		).AddRow("BEDOK", "123", "BEDOK NTH RD", "4 ROOM", "2024-02", "410000", &lease))

	rows, err := s.ListListings(context.Background(), ListingFilter{Towns: []string{"BEDOK"}, FlatType: "4 ROOM"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "70 years", rows[0].RemainingLease)
	assert.NoError(t, mock.ExpectationsWereMet())
}

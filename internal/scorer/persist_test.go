package scorer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flatfind-sg/flatfind-cli/internal/proximity"
	"github.com/flatfind-sg/flatfind-cli/internal/store"
)

func TestSaveRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "flatfind.db"))
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Migrate(ctx))

	cands := testCandidates()
	w := DefaultWeights()
	score := 7
	results := []ScoreResult{
		{Key: "near", Score: 81.5, Distances: proximity.Distances{Transit: 111}, AffordabilityScore: &score},
		{Key: "far", Score: 33.2},
	}

	run, err := SaveRun(ctx, st, cands, w, nil, "4 ROOM", []string{"CENTRAL", "EASTSIDE"}, results)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, Fingerprint(cands, w, nil), run.Fingerprint)

	fetched, err := st.GetScoreRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "4 ROOM", fetched.FlatType)
	assert.Equal(t, []string{"CENTRAL", "EASTSIDE"}, fetched.Towns)

	decoded, err := LoadRunResults(fetched)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, "near", decoded[0].Key)
	assert.InDelta(t, 81.5, decoded[0].Score, 1e-9)
	require.NotNil(t, decoded[0].AffordabilityScore)
	assert.Equal(t, 7, *decoded[0].AffordabilityScore)
	assert.Nil(t, decoded[1].AffordabilityScore)
	assert.InDelta(t, 111, decoded[0].Distances.Transit, 1e-9)
}

func TestLoadRunResultsBadPayload(t *testing.T) {
	_, err := LoadRunResults(&store.ScoreRun{ID: "x", Results: []byte("{not json")})
	assert.Error(t, err)
}

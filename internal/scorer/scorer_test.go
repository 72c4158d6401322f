package scorer

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flatfind-sg/flatfind-cli/internal/dataset"
)

func TestNormalizeWeights(t *testing.T) {
	s := NormalizeWeights(Weights{MRT: 7, School: 6, Hospital: 3, Affordability: 8})
	assert.InDelta(t, 7.0/24, s.MRT, 1e-9)
	assert.InDelta(t, 6.0/24, s.School, 1e-9)
	assert.InDelta(t, 3.0/24, s.Hospital, 1e-9)
	assert.InDelta(t, 8.0/24, s.Affordability, 1e-9)
	assert.InDelta(t, 1.0, s.MRT+s.School+s.Hospital+s.Affordability, 1e-9)
}

func TestNormalizeWeightsClampsNegatives(t *testing.T) {
	s := NormalizeWeights(Weights{MRT: -5, School: 10, Hospital: 0, Affordability: 10})
	assert.Zero(t, s.MRT)
	assert.InDelta(t, 0.5, s.School, 1e-9)
}

func TestNormalizeWeightsDegenerate(t *testing.T) {
	for _, w := range []Weights{{}, {MRT: -1, School: -2}} {
		s := NormalizeWeights(w)
		assert.Equal(t, Shares{MRT: 0.25, School: 0.25, Hospital: 0.25, Affordability: 0.25}, s)
	}
}

func TestDistanceToBaseScore(t *testing.T) {
	tests := []struct {
		meters float64
		cap    float64
		want   float64
	}{
		{0, 3000, 100},
		{1500, 3000, 50},
		{3000, 3000, 0},
		{5000, 3000, 0},
		{1000, 2000, 50},
		{math.NaN(), 3000, 0},
		{math.Inf(1), 3000, 0},
		{100, 0, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, DistanceToBaseScore(tt.meters, tt.cap), 1e-9,
			"meters=%v cap=%v", tt.meters, tt.cap)
	}
}

func TestPriceScore(t *testing.T) {
	assert.InDelta(t, 100, PriceScore(400000, 400000, 600000), 1e-9)
	assert.InDelta(t, 0, PriceScore(600000, 400000, 600000), 1e-9)
	assert.InDelta(t, 50, PriceScore(500000, 400000, 600000), 1e-9)

	// Single-price batch: span floors at 1.
	assert.InDelta(t, 0, PriceScore(500000, 500000, 500000), 1e-9)
}

func TestCandidateFromRow(t *testing.T) {
	c := CandidateFromRow(dataset.FlatRow{
		Town: "ANG MO KIO", Block: "309", StreetName: "ANG MO KIO AVE 1",
		FlatType: "4 ROOM", Month: "2024-03", ResalePrice: "500000",
		RemainingLease: "70 years 03 months",
	})
	assert.Equal(t, 500000.0, c.Price)
	require.NotNil(t, c.RemainingLease)
	assert.Equal(t, 70.0, *c.RemainingLease)
	assert.Contains(t, c.Key, "309__")

	c = CandidateFromRow(dataset.FlatRow{ResalePrice: "n/a"})
	assert.True(t, math.IsNaN(c.Price))
	assert.Nil(t, c.RemainingLease)
}

func TestLoadWeightsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mrt: 10\nschool: 2\n"), 0o644))

	w, err := LoadWeightsFile(path)
	require.NoError(t, err)
	assert.Equal(t, 10.0, w.MRT)
	assert.Equal(t, 2.0, w.School)
	// Unlisted criteria keep their defaults.
	assert.Equal(t, 3.0, w.Hospital)
	assert.Equal(t, 8.0, w.Affordability)

	_, err = LoadWeightsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	cands := []Candidate{{Key: "a"}, {Key: "b"}}
	w := DefaultWeights()

	fp1 := Fingerprint(cands, w, nil)
	fp2 := Fingerprint(cands, w, nil)
	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64)

	// Order matters.
	assert.NotEqual(t, fp1, Fingerprint([]Candidate{{Key: "b"}, {Key: "a"}}, w, nil))

	// Weights matter.
	assert.NotEqual(t, fp1, Fingerprint(cands, Weights{MRT: 1}, nil))

	// Profile matters.
	age, income := 40.0, 120000.0
	withProfile := Fingerprint(cands, w, &Profile{Age: &age, IncomePerAnnum: &income})
	assert.NotEqual(t, fp1, withProfile)
}

func TestProfileHasFinancials(t *testing.T) {
	age, income, budget := 40.0, 120000.0, 80000.0
	assert.False(t, (*Profile)(nil).HasFinancials())
	assert.False(t, (&Profile{}).HasFinancials())
	assert.False(t, (&Profile{Age: &age}).HasFinancials())
	assert.True(t, (&Profile{IncomePerAnnum: &income}).HasFinancials())
	assert.True(t, (&Profile{DownPaymentBudget: &budget}).HasFinancials())
	assert.True(t, (&Profile{Age: &age, IncomePerAnnum: &income}).HasFinancials())
}

package scorer

import (
	"math"

	"github.com/flatfind-sg/flatfind-cli/internal/afford"
	"github.com/flatfind-sg/flatfind-cli/internal/dataset"
	"github.com/flatfind-sg/flatfind-cli/internal/proximity"
)

// Caps are the distance caps in meters beyond which an amenity
// contributes nothing to the score.
type Caps struct {
	Transit  float64 `yaml:"transit" mapstructure:"transit"`
	School   float64 `yaml:"school" mapstructure:"school"`
	Hospital float64 `yaml:"hospital" mapstructure:"hospital"`
}

// DefaultCaps returns the stock distance caps.
func DefaultCaps() Caps {
	return Caps{Transit: 3000, School: 2000, Hospital: 3000}
}

// Candidate is one flat to score.
type Candidate struct {
	Key            string   `json:"composite_key"`
	Town           string   `json:"town"`
	Block          string   `json:"block"`
	StreetName     string   `json:"street_name"`
	FlatType       string   `json:"flat_type"`
	Month          string   `json:"month"`
	Price          float64  `json:"price"`
	RemainingLease *float64 `json:"remaining_lease_years,omitempty"`
}

// CandidateFromRow converts a dataset row into a scoring candidate.
// An unparseable price becomes NaN so downstream scoring can apply its
// non-finite fallbacks instead of treating the flat as free.
func CandidateFromRow(r dataset.FlatRow) Candidate {
	price := math.NaN()
	if v, ok := r.Price(); ok {
		price = v
	}
	return Candidate{
		Key:            r.Key(),
		Town:           r.Town,
		Block:          r.Block,
		StreetName:     r.StreetName,
		FlatType:       r.FlatType,
		Month:          r.Month,
		Price:          price,
		RemainingLease: afford.ParseRemainingLeaseYears(r.RemainingLease),
	}
}

// Profile carries the buyer attributes used for affordability scoring.
// Any financial input is enough for a real evaluation; a missing age
// only drops the age-based tenure cap. Without financial data scoring
// falls back to price rank within the batch.
type Profile struct {
	Age               *float64 `json:"age,omitempty"`
	IncomePerAnnum    *float64 `json:"income_per_annum,omitempty"`
	DownPaymentBudget *float64 `json:"down_payment_budget,omitempty"`
}

// HasFinancials reports whether the profile can drive a real
// affordability evaluation. Income alone yields the repayment score,
// budget alone the down payment score.
func (p *Profile) HasFinancials() bool {
	return p != nil && (p.IncomePerAnnum != nil || p.DownPaymentBudget != nil)
}

// ScoreResult is the scored outcome for one candidate.
type ScoreResult struct {
	Key                string              `json:"composite_key"`
	Score              float64             `json:"score"`
	Distances          proximity.Distances `json:"distances"`
	AffordabilityScore *int                `json:"affordability_score,omitempty"` // raw 1-10, only when a real evaluation ran
}

// DistanceToBaseScore maps a distance in meters onto 0-100: full marks
// at the amenity, zero at or beyond the cap. Non-finite distances
// (empty amenity set) score 0.
func DistanceToBaseScore(meters, capMeters float64) float64 {
	if math.IsNaN(meters) || math.IsInf(meters, 0) || capMeters <= 0 {
		return 0
	}
	s := 100 * (1 - meters/capMeters)
	return math.Max(0, math.Min(100, s))
}

// PriceScore ranks a price within the batch span: the cheapest flat
// scores 100, the priciest 0. The span floor of 1 keeps a single-price
// batch from dividing by zero.
func PriceScore(price, low, high float64) float64 {
	span := math.Max(high-low, 1)
	return 100 * clamp01((high-price)/span)
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

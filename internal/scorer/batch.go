package scorer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/flatfind-sg/flatfind-cli/internal/afford"
	"github.com/flatfind-sg/flatfind-cli/internal/cache"
	"github.com/flatfind-sg/flatfind-cli/internal/geo"
	"github.com/flatfind-sg/flatfind-cli/internal/geocode"
	"github.com/flatfind-sg/flatfind-cli/internal/proximity"
)

// DefaultBatchTTL is how long a scored batch stays valid in the cache.
const DefaultBatchTTL = 10 * time.Minute

// Scorer ranks candidate flats against the amenity sets and an
// optional buyer profile. Identical batches within the TTL window are
// served from cache verbatim.
type Scorer struct {
	index       *geocode.Index
	engine      *proximity.Engine
	cache       *cache.TTL[[]ScoreResult]
	caps        Caps
	interestPct float64
}

// Options tunes a Scorer. Zero values fall back to the defaults.
type Options struct {
	Caps              Caps
	BatchTTL          time.Duration
	AnnualInterestPct float64
}

// New creates a Scorer.
func New(index *geocode.Index, engine *proximity.Engine, opts Options) *Scorer {
	if opts.Caps == (Caps{}) {
		opts.Caps = DefaultCaps()
	}
	if opts.BatchTTL <= 0 {
		opts.BatchTTL = DefaultBatchTTL
	}
	if opts.AnnualInterestPct <= 0 {
		opts.AnnualInterestPct = afford.DefaultAnnualInterestPct
	}
	return &Scorer{
		index:       index,
		engine:      engine,
		cache:       cache.NewTTL[[]ScoreResult](opts.BatchTTL),
		caps:        opts.Caps,
		interestPct: opts.AnnualInterestPct,
	}
}

// Fingerprint identifies a batch by its ordered candidate keys, the
// weights, and the buyer profile. Same fingerprint, same result.
func Fingerprint(cands []Candidate, w Weights, profile *Profile) string {
	keys := make([]string, len(cands))
	for i, c := range cands {
		keys[i] = c.Key
	}
	payload := struct {
		Keys    []string `json:"k"`
		Weights Weights  `json:"w"`
		Profile *Profile `json:"p,omitempty"`
		Version int      `json:"v"`
	}{keys, w, profile, 1}

	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type locatedCandidate struct {
	cand    Candidate
	addrKey string
}

// ScoreBatch scores a batch of candidates and returns them in
// descending score order. Candidates whose address cannot be resolved
// are excluded rather than zero-scored.
func (s *Scorer) ScoreBatch(ctx context.Context, cands []Candidate, w Weights, profile *Profile) ([]ScoreResult, error) {
	if len(cands) == 0 {
		return nil, nil
	}

	log := zap.L().With(zap.String("component", "scorer"))

	fp := Fingerprint(cands, w, profile)
	if hit, ok := s.cache.Get(fp); ok {
		log.Debug("batch cache hit", zap.String("fingerprint", fp[:12]), zap.Int("results", len(hit)))
		return hit, nil
	}

	points := make(map[string]geo.Point)
	var located []locatedCandidate
	for _, c := range cands {
		pt, err := s.index.Lookup(c.Block, c.StreetName, c.Town)
		if err != nil {
			return nil, err
		}
		if pt == nil {
			log.Debug("excluding unresolved candidate", zap.String("key", c.Key))
			continue
		}
		ak := geocode.ExactKey(c.Block, c.StreetName, c.Town)
		points[ak] = *pt
		located = append(located, locatedCandidate{cand: c, addrKey: ak})
	}

	if len(located) == 0 {
		results := []ScoreResult{}
		s.cache.Set(fp, results)
		return results, nil
	}

	dists, err := s.engine.DistancesForAll(ctx, points)
	if err != nil {
		return nil, err
	}

	priceLow, priceHigh := priceBounds(located)
	shares := NormalizeWeights(w)

	results := make([]ScoreResult, 0, len(located))
	for _, lc := range located {
		d := dists[lc.addrKey]

		baseMRT := DistanceToBaseScore(d.Transit, s.caps.Transit)
		baseSchool := DistanceToBaseScore(d.School, s.caps.School)
		baseHospital := DistanceToBaseScore(d.Hospital, s.caps.Hospital)

		affordDim, raw := s.affordabilityDimension(lc.cand, profile, priceLow, priceHigh)

		score := shares.MRT*baseMRT +
			shares.School*baseSchool +
			shares.Hospital*baseHospital +
			shares.Affordability*affordDim

		results = append(results, ScoreResult{
			Key:                lc.cand.Key,
			Score:              score,
			Distances:          d,
			AffordabilityScore: raw,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	s.cache.Set(fp, results)
	log.Info("scored batch",
		zap.Int("candidates", len(cands)),
		zap.Int("scored", len(results)),
		zap.Int("excluded", len(cands)-len(results)),
		zap.Bool("profile", profile.HasFinancials()),
	)
	return results, nil
}

// affordabilityDimension returns the 0-100 affordability component and,
// when a real evaluation ran, the raw 1-10 score. Without financial
// profile data the dimension is the candidate's price rank within the
// batch. Non-finite prices land on the neutral midpoint either way.
func (s *Scorer) affordabilityDimension(c Candidate, profile *Profile, priceLow, priceHigh float64) (float64, *int) {
	if !profile.HasFinancials() {
		if !isFinite(c.Price) || !isFinite(priceLow) || !isFinite(priceHigh) {
			return 50, nil
		}
		return PriceScore(c.Price, priceLow, priceHigh), nil
	}

	if !isFinite(c.Price) {
		return 50, nil
	}

	eval := afford.Evaluate(afford.Input{
		Price:               c.Price,
		Age:                 profile.Age,
		RemainingLeaseYears: c.RemainingLease,
		IncomePerAnnum:      profile.IncomePerAnnum,
		DownPaymentBudget:   profile.DownPaymentBudget,
		AnnualInterestPct:   &s.interestPct,
	})
	if eval.Score == nil {
		return 50, nil
	}
	return float64(*eval.Score) / 10 * 100, eval.Score
}

func priceBounds(located []locatedCandidate) (low, high float64) {
	low, high = math.Inf(1), math.Inf(-1)
	for _, lc := range located {
		if !isFinite(lc.cand.Price) {
			continue
		}
		low = math.Min(low, lc.cand.Price)
		high = math.Max(high, lc.cand.Price)
	}
	return low, high
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

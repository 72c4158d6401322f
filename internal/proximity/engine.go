// Package proximity computes nearest-amenity distances for candidate
// locations. Scans are linear in the amenity set size, so results are
// memoized per address for the life of the process (the amenity sets are
// static).
package proximity

import (
	"context"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/flatfind-sg/flatfind-cli/internal/amenity"
	"github.com/flatfind-sg/flatfind-cli/internal/geo"
)

// Distances holds the nearest-amenity distances for one location, in meters.
// A NaN value means the corresponding amenity set was empty.
type Distances struct {
	Transit  float64 `json:"d_transit"`
	School   float64 `json:"d_school"`
	Hospital float64 `json:"d_hospital"`
}

// Nearest returns the haversine distance from pt to the closest member of
// set, or NaN when set is empty.
func Nearest(pt geo.Point, set []geo.Point) float64 {
	best := math.Inf(1)
	for _, s := range set {
		if d := geo.HaversineMeters(pt, s); d < best {
			best = d
		}
	}
	if math.IsInf(best, 1) {
		return math.NaN()
	}
	return best
}

// Engine resolves Distances against an amenity catalog with a per-address
// memo. The memo has no expiry; it is valid as long as the catalog is.
type Engine struct {
	catalog *amenity.Catalog

	mu   sync.RWMutex
	memo map[string]Distances
}

// NewEngine creates an Engine over the given catalog.
func NewEngine(catalog *amenity.Catalog) *Engine {
	return &Engine{catalog: catalog, memo: make(map[string]Distances)}
}

// DistancesFor computes the three nearest-amenity distances for pt, keyed by
// the normalized address key. Repeated calls for the same key return the
// memoized result without rescanning. Safe for concurrent use.
func (e *Engine) DistancesFor(key string, pt geo.Point) (Distances, error) {
	e.mu.RLock()
	d, ok := e.memo[key]
	e.mu.RUnlock()
	if ok {
		return d, nil
	}

	transit, err := e.catalog.Load(amenity.CategoryTransit)
	if err != nil {
		return Distances{}, err
	}
	schools, err := e.catalog.Load(amenity.CategorySchool)
	if err != nil {
		return Distances{}, err
	}
	hospitals, err := e.catalog.Load(amenity.CategoryHospital)
	if err != nil {
		return Distances{}, err
	}

	d = Distances{
		Transit:  Nearest(pt, transit),
		School:   Nearest(pt, schools),
		Hospital: Nearest(pt, hospitals),
	}

	e.mu.Lock()
	e.memo[key] = d
	e.mu.Unlock()
	return d, nil
}

// DistancesForAll computes distances for many addresses in parallel.
// The memo makes repeat keys cheap, so the fan-out only pays for
// first-seen addresses.
func (e *Engine) DistancesForAll(ctx context.Context, points map[string]geo.Point) (map[string]Distances, error) {
	out := make(map[string]Distances, len(points))
	var outMu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for key, pt := range points {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d, err := e.DistancesFor(key, pt)
			if err != nil {
				return err
			}
			outMu.Lock()
			out[key] = d
			outMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// MemoSize returns the number of memoized addresses.
func (e *Engine) MemoSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.memo)
}

// Package amenity loads the immutable amenity point sets (transit stations,
// schools, healthcare facilities) from GeoJSON or shapefile sources. Each
// category is loaded once per Catalog and shared read-only afterwards.
package amenity

import (
	"math"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/flatfind-sg/flatfind-cli/internal/geo"
)

// Category identifies one amenity point set.
type Category string

const (
	CategoryTransit  Category = "transit"
	CategorySchool   Category = "school"
	CategoryHospital Category = "hospital"
)

// Sources lists the geometry files backing each category. Preschool is an
// optional supplement merged into the school set; a missing or unreadable
// preschool file degrades to fewer points instead of failing the load.
type Sources struct {
	Transit   string
	School    string
	Preschool string
	Hospital  string
}

// Catalog owns the three point sets and their build-once state.
type Catalog struct {
	src Sources

	transitOnce  sync.Once
	schoolOnce   sync.Once
	hospitalOnce sync.Once

	transit  []geo.Point
	school   []geo.Point
	hospital []geo.Point

	transitErr  error
	schoolErr   error
	hospitalErr error
}

// NewCatalog creates a Catalog for the given sources. Nothing is read until
// the first Load call for a category.
func NewCatalog(src Sources) *Catalog {
	return &Catalog{src: src}
}

// Load returns the point set for a category, reading its source files on
// first use. Concurrent callers share a single build.
func (c *Catalog) Load(cat Category) ([]geo.Point, error) {
	switch cat {
	case CategoryTransit:
		c.transitOnce.Do(func() {
			c.transit, c.transitErr = loadGeometryFile(c.src.Transit)
			logLoaded(CategoryTransit, c.transit, c.transitErr)
		})
		return c.transit, c.transitErr

	case CategorySchool:
		c.schoolOnce.Do(func() {
			c.school, c.schoolErr = loadGeometryFile(c.src.School)
			if c.schoolErr != nil {
				return
			}
			if c.src.Preschool != "" {
				pre, err := loadGeometryFile(c.src.Preschool)
				if err != nil {
					zap.L().Warn("amenity: preschool supplement unavailable",
						zap.String("path", c.src.Preschool),
						zap.Error(err),
					)
				} else {
					c.school = append(c.school, pre...)
				}
			}
			logLoaded(CategorySchool, c.school, nil)
		})
		return c.school, c.schoolErr

	case CategoryHospital:
		c.hospitalOnce.Do(func() {
			c.hospital, c.hospitalErr = loadGeometryFile(c.src.Hospital)
			logLoaded(CategoryHospital, c.hospital, c.hospitalErr)
		})
		return c.hospital, c.hospitalErr
	}

	return nil, eris.Errorf("amenity: unknown category %q", cat)
}

func logLoaded(cat Category, pts []geo.Point, err error) {
	if err != nil {
		return
	}
	zap.L().Info("amenity: point set loaded",
		zap.String("category", string(cat)),
		zap.Int("points", len(pts)),
	)
}

// coerceWGS84 turns a raw x/y pair into a WGS84 point. Values already in
// lat/lng range pass through; anything else is treated as a projected SVY21
// easting/northing, which is how Singapore agencies commonly publish
// geometry (EPSG:3414).
func coerceWGS84(x, y float64) (geo.Point, bool) {
	pt := geo.Point{Lat: y, Lng: x}
	if pt.Valid() {
		return pt, true
	}
	if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
		return geo.Point{}, false
	}
	proj := geo.SVY21ToWGS84(x, y)
	return proj, proj.Valid()
}

// centroid returns the arithmetic mean of the finite vertices, or false when
// none are usable.
func centroid(coords []geo.Point) (geo.Point, bool) {
	var sx, sy float64
	var n int
	for _, p := range coords {
		if !p.Valid() {
			continue
		}
		sx += p.Lng
		sy += p.Lat
		n++
	}
	if n == 0 {
		return geo.Point{}, false
	}
	return geo.Point{Lat: sy / float64(n), Lng: sx / float64(n)}, true
}

package proximity

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flatfind-sg/flatfind-cli/internal/amenity"
	"github.com/flatfind-sg/flatfind-cli/internal/geo"
)

func TestNearest(t *testing.T) {
	origin := geo.Point{Lat: 1.3000, Lng: 103.8000}
	set := []geo.Point{
		{Lat: 1.3100, Lng: 103.8000}, // ~1.1 km
		{Lat: 1.3010, Lng: 103.8000}, // ~111 m
		{Lat: 1.4000, Lng: 103.9000},
	}
	d := Nearest(origin, set)
	assert.InDelta(t, 111, d, 2)
}

func TestNearestEmptySet(t *testing.T) {
	d := Nearest(geo.Point{Lat: 1.3, Lng: 103.8}, nil)
	assert.True(t, math.IsNaN(d))
}

func pointGeoJSON(pts ...geo.Point) string {
	s := `{"type":"FeatureCollection","features":[`
	for i, p := range pts {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf(`{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[%f,%f]}}`, p.Lng, p.Lat)
	}
	return s + "]}"
}

func testCatalog(t *testing.T) *amenity.Catalog {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}
	return amenity.NewCatalog(amenity.Sources{
		Transit:  write("transit.geojson", pointGeoJSON(geo.Point{Lat: 1.3010, Lng: 103.8000})),
		School:   write("schools.geojson", pointGeoJSON(geo.Point{Lat: 1.3000, Lng: 103.8050})),
		Hospital: write("hospitals.geojson", pointGeoJSON(geo.Point{Lat: 1.3200, Lng: 103.8000})),
	})
}

func TestDistancesFor(t *testing.T) {
	e := NewEngine(testCatalog(t))
	here := geo.Point{Lat: 1.3000, Lng: 103.8000}

	d, err := e.DistancesFor("309|TEST ST|TOWN", here)
	require.NoError(t, err)
	assert.InDelta(t, 111, d.Transit, 2)
	assert.InDelta(t, 556, d.School, 10)
	assert.InDelta(t, 2224, d.Hospital, 30)
}

func TestDistancesForMemoized(t *testing.T) {
	e := NewEngine(testCatalog(t))
	here := geo.Point{Lat: 1.3000, Lng: 103.8000}

	first, err := e.DistancesFor("A", here)
	require.NoError(t, err)
	assert.Equal(t, 1, e.MemoSize())

	// Same key returns the memoized value even for a different point.
	second, err := e.DistancesFor("A", geo.Point{Lat: 1.4, Lng: 103.9})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, e.MemoSize())
}

func TestDistancesForConcurrent(t *testing.T) {
	e := NewEngine(testCatalog(t))
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("BLK %d|ST|TOWN", i%4)
			pt := geo.Point{Lat: 1.30 + float64(i%4)*0.001, Lng: 103.80}
			_, err := e.DistancesFor(key, pt)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 4, e.MemoSize())
}

func TestDistancesForCatalogError(t *testing.T) {
	e := NewEngine(amenity.NewCatalog(amenity.Sources{
		Transit: filepath.Join(t.TempDir(), "missing.geojson"),
	}))
	_, err := e.DistancesFor("A", geo.Point{Lat: 1.3, Lng: 103.8})
	require.Error(t, err)
}

func TestDistancesForAll(t *testing.T) {
	e := NewEngine(testCatalog(t))

	points := map[string]geo.Point{
		"309|AVE 1|AMK":    {Lat: 1.30, Lng: 103.80},
		"123|NTH RD|BEDOK": {Lat: 1.31, Lng: 103.81},
		"170|ST 13|BISHAN": {Lat: 1.32, Lng: 103.82},
	}

	got, err := e.DistancesForAll(context.Background(), points)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for key := range points {
		single, err := e.DistancesFor(key, points[key])
		require.NoError(t, err)
		assert.Equal(t, single, got[key])
	}
	assert.Equal(t, 3, e.MemoSize())
}

func TestDistancesForAllError(t *testing.T) {
	e := NewEngine(amenity.NewCatalog(amenity.Sources{
		Transit: filepath.Join(t.TempDir(), "missing.geojson"),
	}))
	_, err := e.DistancesForAll(context.Background(), map[string]geo.Point{
		"A": {Lat: 1.3, Lng: 103.8},
	})
	require.Error(t, err)
}

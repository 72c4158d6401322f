package amenity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	geopt "github.com/flatfind-sg/flatfind-cli/internal/geo"
)

// loadGeometryFile reads a geometry collection and flattens it to points.
// GeoJSON and shapefile sources are supported, chosen by extension.
func loadGeometryFile(path string) ([]geopt.Point, error) {
	if path == "" {
		return nil, eris.New("amenity: no source path configured")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return loadShapefile(path)
	default:
		return loadGeoJSON(path)
	}
}

// loadGeoJSON flattens a GeoJSON FeatureCollection: Point features contribute
// their coordinate directly, every other geometry contributes its vertex
// centroid. Features without usable geometry are skipped.
func loadGeoJSON(path string) ([]geopt.Point, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "amenity: read %s", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "amenity: parse %s", path)
	}

	var out []geopt.Point
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		if pt, ok := geometryPoint(f.Geometry); ok {
			out = append(out, pt)
		}
	}
	return out, nil
}

// geometryPoint reduces a geometry to a single representative point.
func geometryPoint(g geom.T) (geopt.Point, bool) {
	switch gg := g.(type) {
	case *geom.Point:
		c := gg.Coords()
		if len(c) < 2 {
			return geopt.Point{}, false
		}
		return coerceWGS84(c[0], c[1])

	case *geom.GeometryCollection:
		var verts []geopt.Point
		for _, sub := range gg.Geoms() {
			verts = append(verts, flatVertices(sub)...)
		}
		return centroid(verts)

	default:
		return centroid(flatVertices(g))
	}
}

// flatVertices walks a geometry's flat coordinate array in layout stride,
// collecting each vertex as lng/lat.
func flatVertices(g geom.T) []geopt.Point {
	stride := g.Layout().Stride()
	if stride < 2 {
		return nil
	}
	flat := g.FlatCoords()
	out := make([]geopt.Point, 0, len(flat)/stride)
	for i := 0; i+1 < len(flat); i += stride {
		if pt, ok := coerceWGS84(flat[i], flat[i+1]); ok {
			out = append(out, pt)
		}
	}
	return out
}

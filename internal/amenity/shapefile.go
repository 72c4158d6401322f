package amenity

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	geopt "github.com/flatfind-sg/flatfind-cli/internal/geo"
)

// loadShapefile flattens a shapefile to points with the same rules as
// GeoJSON: point shapes directly, polygon and polyline shapes by vertex
// centroid. Shapes that produce no usable coordinate are skipped.
func loadShapefile(path string) ([]geopt.Point, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "amenity: open shapefile %s", path)
	}
	defer reader.Close() //nolint:errcheck

	var out []geopt.Point
	for reader.Next() {
		_, shape := reader.Shape()
		if pt, ok := shapePoint(shape); ok {
			out = append(out, pt)
		}
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "amenity: read shapefile %s", path)
	}
	return out, nil
}

func shapePoint(s shp.Shape) (geopt.Point, bool) {
	switch shape := s.(type) {
	case *shp.Point:
		return coerceWGS84(shape.X, shape.Y)
	case *shp.PointZ:
		return coerceWGS84(shape.X, shape.Y)
	case *shp.Polygon:
		return centroid(shpVertices(shape.Points))
	case *shp.PolyLine:
		return centroid(shpVertices(shape.Points))
	default:
		return geopt.Point{}, false
	}
}

func shpVertices(points []shp.Point) []geopt.Point {
	out := make([]geopt.Point, 0, len(points))
	for _, p := range points {
		if pt, ok := coerceWGS84(p.X, p.Y); ok {
			out = append(out, pt)
		}
	}
	return out
}

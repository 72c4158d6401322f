package geo

import "math"

// SVY21 (EPSG:3414) projection constants on the WGS84 ellipsoid.
// Good for block-level accuracy across Singapore.
const (
	svy21A  = 6378137.0         // semi-major axis
	svy21F  = 1 / 298.257223563 // flattening
	svy21K0 = 1.0               // scale factor
	svy21E0 = 28001.642         // false easting
	svy21N0 = 38744.572         // false northing
)

var (
	svy21B    = svy21A * (1 - svy21F)
	svy21E2   = 2*svy21F - svy21F*svy21F
	svy21Lat0 = toRad(1 + 22.0/60)   // origin latitude 1°22'N
	svy21Lon0 = toRad(103 + 50.0/60) // origin longitude 103°50'E
)

// SVY21ToWGS84 converts a projected SVY21 easting/northing pair to WGS84
// degrees using the standard inverse transverse-Mercator series. The function
// is pure; nonsensical input yields out-of-range output, so callers should
// check Point.Valid on the result.
func SVY21ToWGS84(easting, northing float64) Point {
	e := easting - svy21E0
	n := northing - svy21N0

	// Meridional arc coefficients.
	nr := (svy21A - svy21B) / (svy21A + svy21B)
	nr2 := nr * nr
	nr3 := nr2 * nr
	nr4 := nr2 * nr2
	a0 := 1 + nr2/4 + nr4/64
	a2 := 1.5 * (nr - nr3/8)
	a4 := (15.0 / 16) * (nr2 - nr4/4)
	a6 := (35.0 / 48) * nr3
	a8 := (315.0 / 512) * nr4

	// Footpoint latitude.
	m := n / (svy21A * (1 - svy21E2) * a0 * svy21K0)
	latP := svy21Lat0 + m +
		a2*math.Sin(2*(svy21Lat0+m)) +
		a4*math.Sin(4*(svy21Lat0+m)) +
		a6*math.Sin(6*(svy21Lat0+m)) +
		a8*math.Sin(8*(svy21Lat0+m))

	sinLat := math.Sin(latP)
	cosLat := math.Cos(latP)
	tanLat := math.Tan(latP)
	tan2 := tanLat * tanLat
	tan4 := tan2 * tan2

	v := svy21A / math.Sqrt(1-svy21E2*sinLat*sinLat)
	rho := svy21A * (1 - svy21E2) / math.Pow(1-svy21E2*sinLat*sinLat, 1.5)
	psi := v / rho

	xOverKv := e / (svy21K0 * v)

	// Latitude correction series.
	term1 := tanLat / (2 * svy21K0 * svy21K0 * rho * v) * e * e
	term2 := tanLat / (24 * math.Pow(svy21K0, 4) * rho * math.Pow(v, 3)) *
		(5 + 3*tan2 + psi - 9*psi*tan2) * math.Pow(e, 4)
	term3 := tanLat / (720 * math.Pow(svy21K0, 6) * rho * math.Pow(v, 5)) *
		(61 + 90*tan2 + 45*tan4) * math.Pow(e, 6)
	lat := latP - term1 + term2 - term3

	// Longitude correction series.
	lon := svy21Lon0 +
		xOverKv/cosLat -
		(1+2*tan2+psi)*math.Pow(xOverKv, 3)/(6*cosLat) +
		(5+28*tan2+24*tan4+6*psi+8*psi*tan2)*math.Pow(xOverKv, 5)/(120*cosLat)

	return Point{Lat: toDeg(lat), Lng: toDeg(lon)}
}

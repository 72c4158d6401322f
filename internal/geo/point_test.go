package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointValid(t *testing.T) {
	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"singapore", Point{Lat: 1.3521, Lng: 103.8198}, true},
		{"equator origin", Point{}, true},
		{"lat too high", Point{Lat: 90.1, Lng: 0}, false},
		{"lng too low", Point{Lat: 0, Lng: -180.5}, false},
		{"nan lat", Point{Lat: math.NaN(), Lng: 103}, false},
		{"inf lng", Point{Lat: 1, Lng: math.Inf(1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Valid())
		})
	}
}

func TestHaversineMeters(t *testing.T) {
	// Raffles Place to Orchard is roughly 3.4 km.
	raffles := Point{Lat: 1.2840, Lng: 103.8510}
	orchard := Point{Lat: 1.3048, Lng: 103.8318}
	d := HaversineMeters(raffles, orchard)
	assert.InDelta(t, 3150, d, 250)

	// Symmetric and zero at identity.
	assert.InDelta(t, d, HaversineMeters(orchard, raffles), 1e-9)
	assert.Zero(t, HaversineMeters(raffles, raffles))
}

func TestHaversineShortDistance(t *testing.T) {
	// ~111m per 0.001 degree of latitude.
	a := Point{Lat: 1.3000, Lng: 103.8000}
	b := Point{Lat: 1.3010, Lng: 103.8000}
	assert.InDelta(t, 111, HaversineMeters(a, b), 2)
}

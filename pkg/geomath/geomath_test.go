package geomath_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fieldmesh/fieldcoord/pkg/geomath"
)

func TestDistanceKm_Symmetry(t *testing.T) {
	a := geomath.Coordinate{Latitude: 22.5958, Longitude: 88.2636}
	b := geomath.Coordinate{Latitude: 22.5726, Longitude: 88.3639}

	assert.Equal(t, geomath.DistanceKm(a, b), geomath.DistanceKm(b, a))
}

func TestDistanceKm_IdenticalPointsAreZero(t *testing.T) {
	a := geomath.Coordinate{Latitude: -33.8688, Longitude: 151.2093}

	assert.Equal(t, 0.0, geomath.DistanceKm(a, a))
}

func TestDistanceKm_KnownDistance(t *testing.T) {
	// Paris to London, roughly 344 km great-circle.
	paris := geomath.Coordinate{Latitude: 48.8566, Longitude: 2.3522}
	london := geomath.Coordinate{Latitude: 51.5074, Longitude: -0.1278}

	assert.InDelta(t, 344, geomath.DistanceKm(paris, london), 2)
}

func TestDistanceKm_SmallOffset(t *testing.T) {
	// 0.01 degrees of latitude is about 1.11 km anywhere on the sphere.
	a := geomath.Coordinate{Latitude: 22.5958, Longitude: 88.2636}
	b := geomath.Coordinate{Latitude: 22.6058, Longitude: 88.2636}

	assert.InDelta(t, 1.11, geomath.DistanceKm(a, b), 0.01)
}

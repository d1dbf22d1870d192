package features

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"FraudGuard/internal/domain/models"
)

func TestHaversineKnownDistances(t *testing.T) {
	sp := models.GeoPoint{Lat: -23.5505, Lon: -46.6333}
	rio := models.GeoPoint{Lat: -22.9068, Lon: -43.1729}
	tokyo := models.GeoPoint{Lat: 35.6762, Lon: 139.6503}

	assert.InDelta(t, 360, Haversine(sp, rio), 15)
	assert.Greater(t, Haversine(sp, tokyo), 18000.0)
	assert.Equal(t, 0.0, Haversine(sp, sp))
}

func TestHaversineSymmetry(t *testing.T) {
	a := models.GeoPoint{Lat: 51.5074, Lon: -0.1278}
	b := models.GeoPoint{Lat: 40.7128, Lon: -74.006}
	assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-9)
}

func TestDistanceMissingInput(t *testing.T) {
	p := models.GeoPoint{Lat: 1, Lon: 1}

	_, ok := Distance(nil, &p)
	assert.False(t, ok)
	_, ok = Distance(&p, nil)
	assert.False(t, ok)

	d, ok := Distance(&p, &p)
	assert.True(t, ok)
	assert.Equal(t, 0.0, d)
}

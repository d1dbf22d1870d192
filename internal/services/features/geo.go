package features

import (
	"math"

	"FraudGuard/internal/domain/models"
)

const earthRadiusKm = 6371.0088

// Haversine returns the great-circle distance in kilometers between two
// coordinate pairs on a spherical Earth.
func Haversine(a, b models.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Distance computes the haversine distance between two optional coordinate
// pairs. The boolean distinguishes a valid distance from missing input, so a
// genuine zero is never conflated with an absent coordinate.
func Distance(a, b *models.GeoPoint) (float64, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	return Haversine(*a, *b), true
}

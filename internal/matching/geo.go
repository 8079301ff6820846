// internal/matching/geo.go
package matching

import "math"

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle (haversine) distance between two points in kilometres.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// WithinReach admits a pair when the distance is inside either party's radius.
func WithinReach(distanceKm, selfRadiusKm, otherRadiusKm float64) bool {
	return distanceKm <= selfRadiusKm || distanceKm <= otherRadiusKm
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

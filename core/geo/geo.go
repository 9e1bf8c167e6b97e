// Package geo provides great-circle distance math for driver eligibility.
package geo

import "math"

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371

// DistanceKm returns the haversine great-circle distance in kilometers
// between two latitude/longitude pairs expressed in degrees. The function is
// symmetric and returns zero for identical points.
func DistanceKm(latA, lonA, latB, lonB float64) float64 {
	dLat := deg2rad(latB - latA)
	dLon := deg2rad(lonB - lonA)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(latA))*math.Cos(deg2rad(latB))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func deg2rad(deg float64) float64 {
	return deg * (math.Pi / 180)
}

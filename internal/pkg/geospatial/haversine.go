package geospatial

import "math"

// EarthRadiusMeters is the mean Earth radius.
const EarthRadiusMeters = 6371008.8

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// CentralAngle converts a surface distance in meters to radians.
func CentralAngle(meters float64) float64 {
	return meters / EarthRadiusMeters
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

package geo

import "math"

const (
	earthRadiusKm = 6371.0
	kmPerMile     = 1.609344
)

// HaversineKm returns the great-circle distance between two points in km.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// HaversineMiles returns the great-circle distance in statute miles.
func HaversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	return HaversineKm(lat1, lng1, lat2, lng2) / kmPerMile
}

// DistanceMeters returns the great-circle distance in meters.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	return HaversineKm(lat1, lng1, lat2, lng2) * 1000
}

// WithinRadius reports whether the point lies within radiusM meters of the
// center.
func WithinRadius(centerLat, centerLng, lat, lng, radiusM float64) bool {
	return DistanceMeters(centerLat, centerLng, lat, lng) <= radiusM
}

package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const earthRadiusMeters = 6_371_000

// Haversine returns the great-circle distance in meters between two lat/lon points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// Distance returns the euclidean distance in meters between two planar points.
func Distance(a, b orb.Point) float64 {
	return planar.Distance(a, b)
}

// WalkMinutes returns the time in minutes needed to cover the straight line
// between a and b at speed meters per minute.
func WalkMinutes(a, b orb.Point, speed float64) float64 {
	return Distance(a, b) / speed
}

// Finite reports whether both coordinates of p are finite numbers.
func Finite(p orb.Point) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

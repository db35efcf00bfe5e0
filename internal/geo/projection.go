package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// Projection maps WGS84 lat/lon onto a local planar system in meters using an
// equirectangular approximation centered on Origin. Accurate to well under a
// percent across a metropolitan area, which is all the walking radius needs.
type Projection struct {
	Origin orb.Point // lon, lat
	cosLat float64
}

// NewProjection creates a projection centered on the given lat/lon.
func NewProjection(lat, lon float64) *Projection {
	return &Projection{
		Origin: orb.Point{lon, lat},
		cosLat: math.Cos(toRad(lat)),
	}
}

// Forward converts lat/lon to planar (x east, y north) meters.
func (p *Projection) Forward(lat, lon float64) orb.Point {
	x := toRad(lon-p.Origin.Lon()) * earthRadiusMeters * p.cosLat
	y := toRad(lat-p.Origin.Lat()) * earthRadiusMeters
	return orb.Point{x, y}
}

// Inverse converts planar meters back to lat/lon.
func (p *Projection) Inverse(pt orb.Point) (lat, lon float64) {
	lat = p.Origin.Lat() + pt.Y()/earthRadiusMeters*(180/math.Pi)
	lon = p.Origin.Lon() + pt.X()/(earthRadiusMeters*p.cosLat)*(180/math.Pi)
	return lat, lon
}

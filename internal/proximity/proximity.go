// Package proximity answers "which stations lie within r meters of this
// point" over a fixed station set.
package proximity

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"

	"metropath/internal/geo"
	"metropath/internal/network"
)

// DefaultRadius is the walking attachment radius in meters.
const DefaultRadius = 1000.0

// Index returns every station whose distance to p is at most radius,
// sorted by station id.
type Index interface {
	WithinRadius(p orb.Point, radius float64) []network.Station
}

// Scan is the O(n) reference index.
type Scan struct {
	stations []network.Station
}

// NewScan builds a Scan over the stations of g.
func NewScan(g *network.Graph) *Scan {
	return &Scan{stations: g.Stations()}
}

// WithinRadius implements Index.
func (s *Scan) WithinRadius(p orb.Point, radius float64) []network.Station {
	var out []network.Station
	for _, st := range s.stations {
		if within(st, p, radius) {
			out = append(out, st)
		}
	}
	return out
}

// Quadtree indexes stations in a point quadtree. Candidates are taken from
// the radius bounding box and then filtered with the same predicate as Scan,
// so both indexes return identical results.
type Quadtree struct {
	qt *quadtree.Quadtree
}

// NewQuadtree builds a Quadtree over the stations of g.
func NewQuadtree(g *network.Graph) *Quadtree {
	stations := g.Stations()
	if len(stations) == 0 {
		return &Quadtree{}
	}

	bound := orb.Bound{Min: stations[0].Point(), Max: stations[0].Point()}
	for _, s := range stations[1:] {
		bound = bound.Extend(s.Point())
	}
	qt := quadtree.New(bound.Pad(1))
	for _, s := range stations {
		// Every station is inside the padded bound, Add cannot fail.
		_ = qt.Add(s)
	}
	return &Quadtree{qt: qt}
}

// WithinRadius implements Index.
func (q *Quadtree) WithinRadius(p orb.Point, radius float64) []network.Station {
	if q.qt == nil {
		return nil
	}
	// The box is padded slightly beyond radius so rounding at its edges can
	// never drop a station that the exact predicate below would accept.
	box := orb.Bound{Min: p, Max: p}.Pad(radius + boxSlack(p, radius))
	candidates := q.qt.InBound(nil, box)

	var out []network.Station
	for _, c := range candidates {
		st := c.(network.Station)
		if within(st, p, radius) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func boxSlack(p orb.Point, radius float64) float64 {
	return 1e-9 * (math.Abs(p.X()) + math.Abs(p.Y()) + radius + 1)
}

func within(s network.Station, p orb.Point, radius float64) bool {
	return geo.Distance(s.Point(), p) <= radius
}

package proximity

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metropath/internal/network"
)

func graphOf(t *testing.T, stations ...network.Station) *network.Graph {
	t.Helper()
	b := network.NewBuilder()
	for _, s := range stations {
		require.NoError(t, b.AddStation(s))
	}
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func ids(stations []network.Station) []string {
	var out []string
	for _, s := range stations {
		out = append(out, s.ID)
	}
	return out
}

func indexes(g *network.Graph) map[string]Index {
	return map[string]Index{
		"scan":     NewScan(g),
		"quadtree": NewQuadtree(g),
	}
}

func TestWithinRadius_Boundary(t *testing.T) {
	g := graphOf(t,
		network.Station{ID: "at", X: 1000, Y: 0},
		network.Station{ID: "beyond", X: 0, Y: 1000 + 1e-6},
		network.Station{ID: "diag", X: 600, Y: 800},
		network.Station{ID: "origin", X: 0, Y: 0},
	)
	for name, idx := range indexes(g) {
		t.Run(name, func(t *testing.T) {
			got := idx.WithinRadius(orb.Point{0, 0}, DefaultRadius)
			assert.Equal(t, []string{"at", "diag", "origin"}, ids(got))
		})
	}
}

func TestWithinRadius_NoneInRange(t *testing.T) {
	g := graphOf(t, network.Station{ID: "far", X: 5000, Y: 5000})
	for name, idx := range indexes(g) {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, idx.WithinRadius(orb.Point{0, 0}, DefaultRadius))
		})
	}
}

func TestWithinRadius_PointOutsideIndexedArea(t *testing.T) {
	g := graphOf(t,
		network.Station{ID: "a", X: 100, Y: 100},
		network.Station{ID: "b", X: 200, Y: 100},
	)
	for name, idx := range indexes(g) {
		t.Run(name, func(t *testing.T) {
			got := idx.WithinRadius(orb.Point{-700, 100}, DefaultRadius)
			assert.Equal(t, []string{"a", "b"}, ids(got))
		})
	}
}

func TestWithinRadius_CoLocatedStations(t *testing.T) {
	g := graphOf(t,
		network.Station{ID: "hub-1", Line: "1", X: 10, Y: 10},
		network.Station{ID: "hub-2", Line: "2", X: 10, Y: 10},
		network.Station{ID: "hub-3", Line: "3", X: 10, Y: 10},
	)
	for name, idx := range indexes(g) {
		t.Run(name, func(t *testing.T) {
			got := idx.WithinRadius(orb.Point{10, 10}, 0)
			assert.Equal(t, []string{"hub-1", "hub-2", "hub-3"}, ids(got))
		})
	}
}

func TestQuadtree_MatchesScan(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	b := network.NewBuilder()
	for i := 0; i < 500; i++ {
		require.NoError(t, b.AddStation(network.Station{
			ID: fmt.Sprintf("s%03d", i),
			X:  650000 + math.Round(rng.Float64()*10000),
			Y:  6860000 + math.Round(rng.Float64()*10000),
		}))
	}
	g, err := b.Build()
	require.NoError(t, err)

	scan, qt := NewScan(g), NewQuadtree(g)
	for i := 0; i < 200; i++ {
		p := orb.Point{645000 + rng.Float64()*20000, 6855000 + rng.Float64()*20000}
		radius := []float64{0, 250, 1000, 3000}[i%4]
		require.Equal(t, ids(scan.WithinRadius(p, radius)), ids(qt.WithinRadius(p, radius)),
			"point %v radius %v", p, radius)
	}
}

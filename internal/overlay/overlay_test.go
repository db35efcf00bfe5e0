package overlay

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metropath/internal/network"
	"metropath/internal/pathfind"
	"metropath/internal/proximity"
)

func buildPQ(t *testing.T) *network.Graph {
	t.Helper()
	b := network.NewBuilder()
	require.NoError(t, b.AddStation(network.Station{ID: "P", Name: "P", Line: "1", X: 0, Y: 0}))
	require.NoError(t, b.AddStation(network.Station{ID: "Q", Name: "Q", Line: "1", X: 600, Y: 0}))
	require.NoError(t, b.AddEdge("P", "Q", 3.0, network.Transit))
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestBuild_TransitBeatsWalking(t *testing.T) {
	g := buildPQ(t)
	c, src, dst := Build(g, proximity.NewQuadtree(g), orb.Point{0, 0}, orb.Point{600, 0}, DefaultParams())

	res, err := pathfind.ShortestPath(context.Background(), c, src, dst)
	require.NoError(t, err)
	assert.Equal(t, []string{network.StartID, "P", "Q", network.EndID}, res.Path)
	assert.InDelta(t, 3.0, res.Total, 1e-9)
	assert.InDeltaSlice(t, []float64{0, 0, 3, 3}, res.Costs, 1e-9)
}

func TestBuild_LeavesBaseUntouched(t *testing.T) {
	g := buildPQ(t)
	before := g.Neighbors("P")
	stations, edges := g.StationCount(), g.EdgeCount()

	c, _, _ := Build(g, proximity.NewScan(g), orb.Point{0, 0}, orb.Point{600, 0}, DefaultParams())

	// START-P, START-Q, END-P, END-Q, START-END, each both ways.
	assert.Equal(t, 10, c.WalkEdgeCount())
	assert.Len(t, c.Neighbors("P"), 3)
	assert.Equal(t, stations, g.StationCount())
	assert.Equal(t, edges, g.EdgeCount())
	assert.Equal(t, before, g.Neighbors("P"))
	assert.False(t, g.HasNode(network.StartID))
	assert.True(t, c.HasNode(network.StartID))
}

func TestBuild_NoStationsInRange(t *testing.T) {
	g := buildPQ(t)
	c, src, dst := Build(g, proximity.NewScan(g), orb.Point{5000, 5000}, orb.Point{5000, 5666}, DefaultParams())

	assert.Len(t, c.Neighbors(src), 1)
	res, err := pathfind.ShortestPath(context.Background(), c, src, dst)
	require.NoError(t, err)
	assert.Equal(t, []string{network.StartID, network.EndID}, res.Path)
	assert.InDelta(t, 10.0, res.Total, 1e-9)
}

func TestBuild_IdenticalEndpoints(t *testing.T) {
	g := buildPQ(t)
	c, src, dst := Build(g, proximity.NewScan(g), orb.Point{300, 0}, orb.Point{300, 0}, DefaultParams())

	res, err := pathfind.ShortestPath(context.Background(), c, src, dst)
	require.NoError(t, err)
	assert.Equal(t, []string{network.StartID, network.EndID}, res.Path)
	assert.Zero(t, res.Total)
}

func TestBuild_WalkArcsAreSymmetric(t *testing.T) {
	g := buildPQ(t)
	c, _, _ := Build(g, proximity.NewScan(g), orb.Point{100, 0}, orb.Point{500, 0}, DefaultParams())

	for _, id := range []string{network.StartID, network.EndID, "P", "Q"} {
		for _, e := range c.Neighbors(id) {
			if e.Kind != network.Walk {
				continue
			}
			var back *network.Edge
			for _, r := range c.Neighbors(e.To) {
				if r.To == id && r.Kind == network.Walk {
					back = &r
					break
				}
			}
			require.NotNil(t, back, "%s -> %s has no reverse", id, e.To)
			assert.Equal(t, e.Minutes, back.Minutes)
		}
	}
}

func TestBuild_StartOnStationCostsNothing(t *testing.T) {
	g := buildPQ(t)
	c, src, _ := Build(g, proximity.NewScan(g), orb.Point{600, 0}, orb.Point{0, 0}, DefaultParams())

	for _, e := range c.Neighbors(src) {
		if e.To == "Q" {
			assert.Zero(t, e.Minutes)
			return
		}
	}
	t.Fatal("START not linked to Q")
}

func TestBuild_ConcurrentRequests(t *testing.T) {
	g := buildPQ(t)
	idx := proximity.NewQuadtree(g)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := orb.Point{float64(i * 10), 0}
			c, src, dst := Build(g, idx, start, orb.Point{600, 0}, DefaultParams())
			res, err := pathfind.ShortestPath(context.Background(), c, src, dst)
			if err != nil {
				errs <- err
				return
			}
			if res.Path[0] != network.StartID || res.Path[len(res.Path)-1] != network.EndID {
				errs <- fmt.Errorf("request %d: bad path %v", i, res.Path)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	assert.Equal(t, 2, g.StationCount())
	assert.Equal(t, 2, g.EdgeCount())
}

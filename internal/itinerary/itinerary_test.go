package itinerary

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metropath/internal/network"
	"metropath/internal/overlay"
	"metropath/internal/pathfind"
	"metropath/internal/proximity"
)

func route(t *testing.T, start, end orb.Point) (*pathfind.Result, *overlay.Composite) {
	t.Helper()
	b := network.NewBuilder()
	require.NoError(t, b.AddStation(network.Station{ID: "P", Name: "Plaza", Line: "1", X: 0, Y: 0}))
	require.NoError(t, b.AddStation(network.Station{ID: "Q", Name: "Quay", Line: "1", X: 600, Y: 0}))
	require.NoError(t, b.AddEdge("P", "Q", 3.0, network.Transit))
	g, err := b.Build()
	require.NoError(t, err)

	c, src, dst := overlay.Build(g, proximity.NewScan(g), start, end, overlay.DefaultParams())
	res, err := pathfind.ShortestPath(context.Background(), c, src, dst)
	require.NoError(t, err)
	return res, c
}

func TestProject(t *testing.T) {
	res, c := route(t, orb.Point{0, 0}, orb.Point{600, 0})

	it, err := Project(res, c)
	require.NoError(t, err)

	require.Len(t, it.Stops, 4)
	assert.Equal(t, Stop{Label: "START", Line: Placeholder, Kind: KindStart, Display: "0.00"}, it.Stops[0])
	assert.Equal(t, "Plaza", it.Stops[1].Label)
	assert.Equal(t, "P", it.Stops[1].StationID)
	assert.Equal(t, "Quay", it.Stops[2].Label)
	assert.Equal(t, "3.00", it.Stops[2].Display)
	assert.Equal(t, KindEnd, it.Stops[3].Kind)
	assert.Equal(t, Placeholder, it.Stops[3].Line)
	assert.Equal(t, []string{"1"}, it.Lines)
	assert.False(t, it.WalkOnly)
	assert.InDelta(t, 3.0, it.Total, 1e-9)
}

func TestProject_WalkOnly(t *testing.T) {
	res, c := route(t, orb.Point{5000, 0}, orb.Point{5000, 666})

	it, err := Project(res, c)
	require.NoError(t, err)
	assert.True(t, it.WalkOnly)
	assert.Empty(t, it.Lines)
	assert.Equal(t, "10.00", it.Stops[1].Display)
}

func TestProject_UnknownNode(t *testing.T) {
	_, c := route(t, orb.Point{0, 0}, orb.Point{600, 0})
	res := &pathfind.Result{Path: []string{"nowhere"}, Costs: []float64{0}}

	_, err := Project(res, c)
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestFormat(t *testing.T) {
	res, c := route(t, orb.Point{0, 0}, orb.Point{600, 0})
	it, err := Project(res, c)
	require.NoError(t, err)
	it.Notices = []Notice{{Line: "1", Header: "Track work", Effect: "DETOUR"}}

	var buf bytes.Buffer
	require.NoError(t, it.Format(&buf))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	require.Len(t, lines, 5)
	assert.Equal(t, "Station: START                               Line: /          Time: 0.00", lines[0])
	assert.Equal(t, "Station: Quay                                Line: 1          Time: 3.00", lines[2])
	assert.Equal(t, "Alert [1] DETOUR: Track work", lines[4])
}

func TestJSON(t *testing.T) {
	res, c := route(t, orb.Point{0, 0}, orb.Point{600, 0})
	it, err := Project(res, c)
	require.NoError(t, err)

	data, err := json.Marshal(it)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"elapsed":"3.00"`)
	assert.Contains(t, string(data), `"walk_only":false`)
	assert.NotContains(t, string(data), `"notices"`)
}

func TestClone(t *testing.T) {
	res, c := route(t, orb.Point{0, 0}, orb.Point{600, 0})
	it, err := Project(res, c)
	require.NoError(t, err)

	cp := it.Clone()
	cp.Stops[0].Label = "changed"
	cp.Notices = append(cp.Notices, Notice{Line: "1"})
	assert.Equal(t, "START", it.Stops[0].Label)
	assert.Empty(t, it.Notices)
}

// Package overlay attaches a request's start and end points to the shared
// station graph without touching it.
//
// A Composite is a view: the base graph plus a small request-local delta of
// two ad-hoc nodes and their walking arcs. Lookups consult the delta first and
// fall back to the base. The delta lives only as long as the Composite value,
// so concurrent requests never see each other's nodes and there is nothing to
// clean up afterwards.
package overlay

import (
	"github.com/paulmach/orb"

	"metropath/internal/geo"
	"metropath/internal/network"
	"metropath/internal/proximity"
)

// DefaultFootSpeed is the walking speed in meters per minute.
const DefaultFootSpeed = 66.6

// Params controls how ad-hoc nodes attach to the network.
type Params struct {
	FootSpeed float64 // meters per minute
	Radius    float64 // meters
}

// DefaultParams returns the stock walking parameters.
func DefaultParams() Params {
	return Params{FootSpeed: DefaultFootSpeed, Radius: proximity.DefaultRadius}
}

// AdHocNode is a transient START or END point.
type AdHocNode struct {
	ID    string
	Point orb.Point
}

// Composite is the per-request routing graph.
type Composite struct {
	base  *network.Graph
	nodes map[string]AdHocNode
	delta map[string][]network.Edge
}

// Build creates the composite graph for one request and returns it with the
// ids of the start and end nodes.
func Build(base *network.Graph, idx proximity.Index, start, end orb.Point, p Params) (*Composite, string, string) {
	c := &Composite{
		base: base,
		nodes: map[string]AdHocNode{
			network.StartID: {ID: network.StartID, Point: start},
			network.EndID:   {ID: network.EndID, Point: end},
		},
		delta: make(map[string][]network.Edge),
	}

	c.attach(idx, network.StartID, start, p)
	c.attach(idx, network.EndID, end, p)
	c.link(network.StartID, network.EndID, geo.WalkMinutes(start, end, p.FootSpeed))

	return c, network.StartID, network.EndID
}

func (c *Composite) attach(idx proximity.Index, id string, pt orb.Point, p Params) {
	for _, s := range idx.WithinRadius(pt, p.Radius) {
		c.link(id, s.ID, geo.WalkMinutes(pt, s.Point(), p.FootSpeed))
	}
}

func (c *Composite) link(a, b string, minutes float64) {
	c.delta[a] = append(c.delta[a], network.Edge{From: a, To: b, Minutes: minutes, Kind: network.Walk})
	c.delta[b] = append(c.delta[b], network.Edge{From: b, To: a, Minutes: minutes, Kind: network.Walk})
}

// HasNode reports whether id is an ad-hoc node or a base station.
func (c *Composite) HasNode(id string) bool {
	if _, ok := c.nodes[id]; ok {
		return true
	}
	return c.base.HasNode(id)
}

// Neighbors returns the outgoing arcs of id: base arcs followed by the
// request's walking arcs.
func (c *Composite) Neighbors(id string) []network.Edge {
	extra := c.delta[id]
	if _, ok := c.nodes[id]; ok {
		return extra
	}
	base := c.base.Neighbors(id)
	if len(extra) == 0 {
		return base
	}
	out := make([]network.Edge, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

// AdHoc returns the ad-hoc node with the given id.
func (c *Composite) AdHoc(id string) (AdHocNode, bool) {
	n, ok := c.nodes[id]
	return n, ok
}

// Station returns the base station with the given id.
func (c *Composite) Station(id string) (network.Station, bool) {
	return c.base.Station(id)
}

// WalkEdgeCount returns the number of walking arcs added by this request.
func (c *Composite) WalkEdgeCount() int {
	n := 0
	for _, edges := range c.delta {
		n += len(edges)
	}
	return n
}

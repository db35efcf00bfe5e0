// Package network holds the static station graph: stations as nodes, transit
// and transfer connections as weighted arcs. A Graph is immutable once built
// and safe for any number of concurrent readers.
package network

import (
	"errors"
	"sort"

	"github.com/paulmach/orb"
)

var (
	ErrEmptyNetwork     = errors.New("network: no stations loaded")
	ErrEmptyStationID   = errors.New("network: station id is empty")
	ErrReservedID       = errors.New("network: station id is reserved")
	ErrDuplicateStation = errors.New("network: duplicate station id")
	ErrUnknownStation   = errors.New("network: unknown station")
	ErrBadWeight        = errors.New("network: edge weight must be finite and non-negative")
	ErrBadCoordinate    = errors.New("network: station coordinates must be finite")
)

// Reserved node ids used by per-request ad-hoc nodes. Stations may not use them.
const (
	StartID = "START"
	EndID   = "END"
)

// EdgeKind classifies an arc.
type EdgeKind string

const (
	Transit  EdgeKind = "transit"
	Transfer EdgeKind = "transfer"
	Walk     EdgeKind = "walk"
)

// Station is a fixed transit stop. X and Y are planar meters.
type Station struct {
	ID   string
	Name string
	Line string
	X, Y float64
}

// Point implements orb.Pointer.
func (s Station) Point() orb.Point {
	return orb.Point{s.X, s.Y}
}

// Edge is a directed arc. Undirected connections are stored as two arcs
// with equal weight.
type Edge struct {
	From    string
	To      string
	Minutes float64
	Kind    EdgeKind
}

// Graph is the immutable station graph.
type Graph struct {
	stations map[string]Station
	ids      []string          // sorted
	arcs     map[string][]Edge // from -> arcs sorted by (To, Kind, Minutes)
	arcCount int
}

// Station looks up a station by id.
func (g *Graph) Station(id string) (Station, bool) {
	s, ok := g.stations[id]
	return s, ok
}

// HasNode reports whether id is a station of the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.stations[id]
	return ok
}

// Neighbors returns the outgoing arcs of id in deterministic order.
// The returned slice is shared and must not be modified.
func (g *Graph) Neighbors(id string) []Edge {
	return g.arcs[id]
}

// Stations returns all stations sorted by id.
func (g *Graph) Stations() []Station {
	out := make([]Station, 0, len(g.ids))
	for _, id := range g.ids {
		out = append(out, g.stations[id])
	}
	return out
}

// Edges returns every arc, ordered by source id then destination.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.arcCount)
	for _, id := range g.ids {
		out = append(out, g.arcs[id]...)
	}
	return out
}

// Lines returns the distinct line labels, sorted.
func (g *Graph) Lines() []string {
	seen := make(map[string]bool)
	var lines []string
	for _, s := range g.stations {
		if s.Line != "" && !seen[s.Line] {
			seen[s.Line] = true
			lines = append(lines, s.Line)
		}
	}
	sort.Strings(lines)
	return lines
}

// StationCount returns the number of stations.
func (g *Graph) StationCount() int { return len(g.ids) }

// EdgeCount returns the number of directed arcs.
func (g *Graph) EdgeCount() int { return g.arcCount }

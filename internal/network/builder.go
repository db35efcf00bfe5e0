package network

import (
	"fmt"
	"math"
	"sort"
)

// Builder accumulates stations and arcs and produces an immutable Graph.
// A Builder is not safe for concurrent use.
type Builder struct {
	stations map[string]Station
	arcs     map[string]map[arcKey]float64
}

type arcKey struct {
	to   string
	kind EdgeKind
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		stations: make(map[string]Station),
		arcs:     make(map[string]map[arcKey]float64),
	}
}

// AddStation registers a station.
func (b *Builder) AddStation(s Station) error {
	switch {
	case s.ID == "":
		return ErrEmptyStationID
	case s.ID == StartID || s.ID == EndID:
		return fmt.Errorf("%w: %q", ErrReservedID, s.ID)
	case math.IsNaN(s.X) || math.IsInf(s.X, 0) || math.IsNaN(s.Y) || math.IsInf(s.Y, 0):
		return fmt.Errorf("%w: station %q", ErrBadCoordinate, s.ID)
	}
	if _, ok := b.stations[s.ID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateStation, s.ID)
	}
	b.stations[s.ID] = s
	return nil
}

// AddArc adds a one-way connection. When the same (from, to, kind) arc is
// added twice, the faster one wins.
func (b *Builder) AddArc(from, to string, minutes float64, kind EdgeKind) error {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) || minutes < 0 {
		return fmt.Errorf("%w: %s->%s %v", ErrBadWeight, from, to, minutes)
	}
	if _, ok := b.stations[from]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStation, from)
	}
	if _, ok := b.stations[to]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStation, to)
	}
	m, ok := b.arcs[from]
	if !ok {
		m = make(map[arcKey]float64)
		b.arcs[from] = m
	}
	k := arcKey{to: to, kind: kind}
	if cur, ok := m[k]; !ok || minutes < cur {
		m[k] = minutes
	}
	return nil
}

// AddEdge adds a bidirectional connection with equal weight both ways.
func (b *Builder) AddEdge(a, c string, minutes float64, kind EdgeKind) error {
	if err := b.AddArc(a, c, minutes, kind); err != nil {
		return err
	}
	return b.AddArc(c, a, minutes, kind)
}

// Len returns the number of stations added so far.
func (b *Builder) Len() int { return len(b.stations) }

// Build freezes the builder contents into a Graph. The builder may be
// discarded afterwards; the Graph shares nothing with it.
func (b *Builder) Build() (*Graph, error) {
	if len(b.stations) == 0 {
		return nil, ErrEmptyNetwork
	}

	g := &Graph{
		stations: make(map[string]Station, len(b.stations)),
		ids:      make([]string, 0, len(b.stations)),
		arcs:     make(map[string][]Edge, len(b.arcs)),
	}
	for id, s := range b.stations {
		g.stations[id] = s
		g.ids = append(g.ids, id)
	}
	sort.Strings(g.ids)

	for from, m := range b.arcs {
		edges := make([]Edge, 0, len(m))
		for k, w := range m {
			edges = append(edges, Edge{From: from, To: k.to, Minutes: w, Kind: k.kind})
		}
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].To != edges[j].To {
				return edges[i].To < edges[j].To
			}
			return edges[i].Kind < edges[j].Kind
		})
		g.arcs[from] = edges
		g.arcCount += len(edges)
	}
	return g, nil
}

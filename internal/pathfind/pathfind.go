// Package pathfind computes minimum-cost paths over graphs with non-negative
// arc weights.
//
// ShortestPath is Dijkstra's algorithm with a binary-heap frontier and lazy
// decrease-key: stale heap entries are skipped when popped. Time is
// O((V+E) log V), space O(V+E).
//
// Among paths of equal cost the solver prefers the one with fewer arcs, then
// the one whose node-id sequence is lexicographically smallest, so the result
// is fully reproducible for a given graph.
package pathfind

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"math"

	"metropath/internal/network"
)

var (
	ErrEmptySource    = errors.New("pathfind: source id is empty")
	ErrNodeNotFound   = errors.New("pathfind: node not found")
	ErrNoPath         = errors.New("pathfind: no path between source and target")
	ErrNegativeWeight = errors.New("pathfind: negative or NaN arc weight")
)

// Graph is the read-only view the solver walks.
type Graph interface {
	HasNode(id string) bool
	Neighbors(id string) []network.Edge
}

// Result is a minimum-cost path.
type Result struct {
	Path  []string       // node ids from source to target
	Costs []float64      // cumulative cost on arrival at Path[i]
	Arcs  []network.Edge // arcs traversed, len(Path)-1
	Total float64
}

// cancelCheckInterval is how many frontier pops happen between context checks.
const cancelCheckInterval = 256

// ShortestPath returns the minimum-cost path from source to target.
// Arc weights are validated as they are relaxed; a negative or NaN weight
// aborts the search with ErrNegativeWeight.
func ShortestPath(ctx context.Context, g Graph, source, target string) (*Result, error) {
	if source == "" {
		return nil, ErrEmptySource
	}
	if !g.HasNode(source) {
		return nil, fmt.Errorf("%w: source %q", ErrNodeNotFound, source)
	}
	if !g.HasNode(target) {
		return nil, fmt.Errorf("%w: target %q", ErrNodeNotFound, target)
	}

	r := &runner{
		g:      g,
		labels: map[string]*label{source: {}},
	}
	heap.Push(&r.pq, &item{id: source})

	pops := 0
	for r.pq.Len() > 0 {
		if pops++; pops%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		it := heap.Pop(&r.pq).(*item)
		l := r.labels[it.id]
		if l.done || it.cost != l.cost || it.hops != l.hops {
			continue // stale entry
		}
		l.done = true

		if it.id == target {
			return r.result(source, target), nil
		}
		if err := r.relax(it.id, l); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %s -> %s", ErrNoPath, source, target)
}

// label is the best known way to reach a node.
type label struct {
	cost float64
	hops int
	prev string
	via  network.Edge
	done bool
}

type runner struct {
	g      Graph
	labels map[string]*label
	pq     frontier
}

func (r *runner) relax(u string, lu *label) error {
	for _, e := range r.g.Neighbors(u) {
		if e.Minutes < 0 || math.IsNaN(e.Minutes) {
			return fmt.Errorf("%w: %s->%s weight=%v", ErrNegativeWeight, e.From, e.To, e.Minutes)
		}
		cost := lu.cost + e.Minutes
		hops := lu.hops + 1

		lv, seen := r.labels[e.To]
		if seen && (lv.done || !r.better(cost, hops, u, lv)) {
			continue
		}
		if !seen {
			lv = &label{}
			r.labels[e.To] = lv
		}
		lv.cost, lv.hops, lv.prev, lv.via = cost, hops, u, e
		heap.Push(&r.pq, &item{id: e.To, cost: cost, hops: hops})
	}
	return nil
}

// better reports whether reaching v through u with (cost, hops) beats lv.
func (r *runner) better(cost float64, hops int, u string, lv *label) bool {
	switch {
	case cost != lv.cost:
		return cost < lv.cost
	case hops != lv.hops:
		return hops < lv.hops
	case u == lv.prev:
		return false
	}
	// Equal cost and length: both predecessors are settled, so their paths are
	// final and of equal length. Compare them element by element.
	a, b := r.pathTo(u), r.pathTo(lv.prev)
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func (r *runner) pathTo(id string) []string {
	n := r.labels[id].hops + 1
	path := make([]string, n)
	for i := n - 1; i >= 0; i-- {
		path[i] = id
		id = r.labels[id].prev
	}
	return path
}

func (r *runner) result(source, target string) *Result {
	lt := r.labels[target]
	res := &Result{
		Path:  r.pathTo(target),
		Costs: make([]float64, lt.hops+1),
		Arcs:  make([]network.Edge, lt.hops),
		Total: lt.cost,
	}
	for i, id := range res.Path {
		l := r.labels[id]
		res.Costs[i] = l.cost
		if i > 0 {
			res.Arcs[i-1] = l.via
		}
	}
	return res
}

// item is a frontier entry. Entries are ordered by cost, then hops, then id so
// the pop order never depends on map iteration.
type item struct {
	id   string
	cost float64
	hops int
}

type frontier []*item

func (pq frontier) Len() int { return len(pq) }

func (pq frontier) Less(i, j int) bool {
	a, b := pq[i], pq[j]
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	if a.hops != b.hops {
		return a.hops < b.hops
	}
	return a.id < b.id
}

func (pq frontier) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *frontier) Push(x any) { *pq = append(*pq, x.(*item)) }

func (pq *frontier) Pop() any {
	old := *pq
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return it
}

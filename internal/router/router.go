// Package router answers point-to-point routing requests against a loaded
// station graph.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/bluele/gcache"
	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"metropath/internal/geo"
	"metropath/internal/itinerary"
	"metropath/internal/network"
	"metropath/internal/overlay"
	"metropath/internal/pathfind"
	"metropath/internal/proximity"
)

// DefaultMaxCoordinate bounds accepted coordinates, in meters.
const DefaultMaxCoordinate = 1e9

var (
	ErrInvalidCoordinate = errors.New("router: invalid coordinate")
	ErrInvalidParams     = errors.New("router: invalid walking parameters")
	ErrGraphUnavailable  = errors.New("router: station graph unavailable")
)

// AlertSource supplies service notices for the lines an itinerary uses.
type AlertSource interface {
	NoticesForLines(lines []string) []itinerary.Notice
}

// Router is safe for concurrent use. The graph it holds is never modified.
type Router struct {
	graph    *network.Graph
	index    proximity.Index
	params   overlay.Params
	maxCoord float64
	cache    gcache.Cache
	alerts   AlertSource
	logger   *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithParams sets foot speed and attachment radius.
func WithParams(p overlay.Params) Option {
	return func(r *Router) { r.params = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithIndex replaces the default quadtree proximity index.
func WithIndex(idx proximity.Index) Option {
	return func(r *Router) { r.index = idx }
}

// WithMaxCoordinate sets the largest accepted absolute coordinate.
func WithMaxCoordinate(m float64) Option {
	return func(r *Router) { r.maxCoord = m }
}

// WithCache enables an LRU itinerary cache of the given size. Entries expire
// after ttl; a zero ttl keeps them until evicted.
func WithCache(size int, ttl time.Duration) Option {
	return func(r *Router) {
		if size <= 0 {
			r.cache = nil
			return
		}
		b := gcache.New(size).LRU()
		if ttl > 0 {
			b = b.Expiration(ttl)
		}
		r.cache = b.Build()
	}
}

// WithAlerts attaches service notices to returned itineraries.
func WithAlerts(src AlertSource) Option {
	return func(r *Router) { r.alerts = src }
}

// New creates a router over g.
func New(g *network.Graph, opts ...Option) (*Router, error) {
	if g == nil || g.StationCount() == 0 {
		return nil, ErrGraphUnavailable
	}
	r := &Router{
		graph:    g,
		params:   overlay.DefaultParams(),
		maxCoord: DefaultMaxCoordinate,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if !(r.params.FootSpeed > 0) || math.IsInf(r.params.FootSpeed, 0) {
		return nil, fmt.Errorf("%w: foot speed %v", ErrInvalidParams, r.params.FootSpeed)
	}
	if !(r.params.Radius >= 0) || math.IsInf(r.params.Radius, 0) {
		return nil, fmt.Errorf("%w: radius %v", ErrInvalidParams, r.params.Radius)
	}
	if r.index == nil {
		r.index = proximity.NewQuadtree(g)
	}
	return r, nil
}

// Graph returns the station graph.
func (r *Router) Graph() *network.Graph { return r.graph }

// Params returns the walking parameters in effect.
func (r *Router) Params() overlay.Params { return r.params }

// Route computes the fastest itinerary from start to end.
func (r *Router) Route(ctx context.Context, start, end orb.Point) (*itinerary.Itinerary, error) {
	if err := r.validate(start); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	if err := r.validate(end); err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}

	reqID := RequestID(ctx)
	logger := r.logger.With("request_id", reqID)
	began := time.Now()

	key := cacheKey(start, end)
	if it, ok := r.cached(key); ok {
		logger.Debug("route cache hit", "total", it.Total)
		return r.annotate(it), nil
	}

	c, src, dst := overlay.Build(r.graph, r.index, start, end, r.params)
	res, err := pathfind.ShortestPath(ctx, c, src, dst)
	if err != nil {
		if errors.Is(err, pathfind.ErrNoPath) {
			logger.Error("no path between ad-hoc nodes", "start", start, "end", end)
		}
		return nil, fmt.Errorf("shortest path: %w", err)
	}

	it, err := itinerary.Project(res, c)
	if err != nil {
		return nil, fmt.Errorf("project itinerary: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.Set(key, it.Clone()); err != nil {
			logger.Warn("cache itinerary", "error", err)
		}
	}

	logger.Info("route computed",
		"total", itinerary.FormatMinutes(it.Total),
		"stops", len(it.Stops),
		"walk_arcs", c.WalkEdgeCount(),
		"walk_only", it.WalkOnly,
		"duration", time.Since(began),
	)
	return r.annotate(it), nil
}

// Nearby returns stations within radius of p. A non-positive radius uses the
// configured one.
func (r *Router) Nearby(p orb.Point, radius float64) ([]network.Station, error) {
	if err := r.validate(p); err != nil {
		return nil, err
	}
	if math.IsNaN(radius) || math.IsInf(radius, 0) {
		return nil, fmt.Errorf("%w: radius %v", ErrInvalidParams, radius)
	}
	if radius <= 0 {
		radius = r.params.Radius
	}
	return r.index.WithinRadius(p, radius), nil
}

func (r *Router) validate(p orb.Point) error {
	if !geo.Finite(p) {
		return fmt.Errorf("%w: (%v, %v) is not finite", ErrInvalidCoordinate, p.X(), p.Y())
	}
	if math.Abs(p.X()) > r.maxCoord || math.Abs(p.Y()) > r.maxCoord {
		return fmt.Errorf("%w: (%v, %v) out of range", ErrInvalidCoordinate, p.X(), p.Y())
	}
	return nil
}

func (r *Router) cached(key string) (*itinerary.Itinerary, bool) {
	if r.cache == nil {
		return nil, false
	}
	v, err := r.cache.Get(key)
	if err != nil {
		return nil, false
	}
	it, ok := v.(*itinerary.Itinerary)
	return it, ok
}

// annotate returns a copy of it carrying current notices. Cached values never
// hold notices, so alerts stay fresh across cache hits.
func (r *Router) annotate(it *itinerary.Itinerary) *itinerary.Itinerary {
	out := it.Clone()
	out.Notices = nil
	if r.alerts != nil && len(out.Lines) > 0 {
		out.Notices = r.alerts.NoticesForLines(out.Lines)
	}
	return out
}

func cacheKey(start, end orb.Point) string {
	return fmt.Sprintf("%g,%g>%g,%g", start.X(), start.Y(), end.X(), end.Y())
}

type ctxKey struct{}

// WithRequestID returns a context carrying id for log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns the request id stored in ctx, or a fresh one.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

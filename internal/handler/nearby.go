package handler

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"

	"github.com/paulmach/orb"

	"metropath/internal/geo"
	"metropath/internal/router"
)

// NearbyStation is a station with its straight-line distance from the query point.
type NearbyStation struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Line     string  `json:"line"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Distance float64 `json:"distance_m"`
	WalkMin  float64 `json:"walk_minutes"`
}

// NearbyResponse is the body of GET /api/stations/nearby.
type NearbyResponse struct {
	Radius   float64         `json:"radius_m"`
	Stations []NearbyStation `json:"stations"`
}

// Nearby serves GET /api/stations/nearby?x=&y=[&radius=]. Stations are
// ordered by distance, then id. radius must be positive; without it the
// router's walking radius applies.
func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request) {
	rt := h.router.Load()
	if rt == nil {
		h.writeError(w, http.StatusServiceUnavailable, router.ErrGraphUnavailable.Error())
		return
	}

	x, err := parseFloatParam(r, "x")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	y, err := parseFloatParam(r, "y")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	radius := rt.Params().Radius
	if s := r.URL.Query().Get("radius"); s != "" {
		radius, err = strconv.ParseFloat(s, 64)
		if err != nil || radius <= 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid radius %q", s))
			return
		}
	}

	p := orb.Point{x, y}
	stations, err := rt.Nearby(p, radius)
	if err != nil {
		h.writeError(w, routeErrorStatus(err), err.Error())
		return
	}

	resp := NearbyResponse{Radius: radius, Stations: make([]NearbyStation, 0, len(stations))}
	speed := rt.Params().FootSpeed
	for _, s := range stations {
		d := geo.Distance(p, s.Point())
		resp.Stations = append(resp.Stations, NearbyStation{
			ID:       s.ID,
			Name:     s.Name,
			Line:     s.Line,
			X:        s.X,
			Y:        s.Y,
			Distance: math.Round(d*10) / 10,
			WalkMin:  math.Round(d/speed*100) / 100,
		})
	}
	sortByDistance(resp.Stations)

	h.writeJSON(w, http.StatusOK, resp)
}

func sortByDistance(s []NearbyStation) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Distance != s[j].Distance {
			return s[i].Distance < s[j].Distance
		}
		return s[i].ID < s[j].ID
	})
}

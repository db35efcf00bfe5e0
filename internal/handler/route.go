package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/paulmach/orb"

	"metropath/internal/router"
	"metropath/internal/templates"
)

var errMissingParam = errors.New("missing parameter")

// RouteJSON serves GET /api/route?sx=&sy=&ex=&ey=.
func (h *Handler) RouteJSON(w http.ResponseWriter, r *http.Request) {
	rt := h.router.Load()
	if rt == nil {
		h.writeError(w, http.StatusServiceUnavailable, router.ErrGraphUnavailable.Error())
		return
	}

	start, end, err := parseRouteQuery(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	it, err := rt.Route(r.Context(), start, end)
	if err != nil {
		h.writeError(w, routeErrorStatus(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, it)
}

// RoutePage serves GET /route, the HTML version of RouteJSON.
func (h *Handler) RoutePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := templates.ItineraryData{
		Page:  h.page("Route", r),
		Query: templates.RouteQuery{SX: q.Get("sx"), SY: q.Get("sy"), EX: q.Get("ex"), EY: q.Get("ey")},
	}
	status := http.StatusOK

	rt := h.router.Load()
	start, end, err := parseRouteQuery(r)
	switch {
	case rt == nil:
		status = http.StatusServiceUnavailable
		data.Error = "The station network is still loading. Try again shortly."
	case err != nil:
		status = http.StatusBadRequest
		data.Error = err.Error()
	default:
		it, err := rt.Route(r.Context(), start, end)
		if err != nil {
			status = routeErrorStatus(err)
			data.Error = err.Error()
		} else {
			data.Itinerary = it
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ItineraryPage(data).Render(r.Context(), w); err != nil {
		h.logger.Error("render route page", "error", err)
	}
}

func parseRouteQuery(r *http.Request) (start, end orb.Point, err error) {
	var v [4]float64
	for i, name := range []string{"sx", "sy", "ex", "ey"} {
		v[i], err = parseFloatParam(r, name)
		if err != nil {
			return orb.Point{}, orb.Point{}, err
		}
	}
	return orb.Point{v[0], v[1]}, orb.Point{v[2], v[3]}, nil
}

func parseFloatParam(r *http.Request, name string) (float64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, fmt.Errorf("%w: %s", errMissingParam, name)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not a number", router.ErrInvalidCoordinate, name)
	}
	return f, nil
}

func routeErrorStatus(err error) int {
	switch {
	case errors.Is(err, router.ErrInvalidCoordinate), errors.Is(err, router.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, router.ErrGraphUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

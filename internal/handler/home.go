package handler

import (
	"net/http"

	"metropath/internal/templates"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Stations int    `json:"stations"`
	Edges    int    `json:"edges"`
	Lines    int    `json:"lines"`
}

// Home serves the query form.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := templates.HomeData{Page: h.page("", r)}
	if rt := h.router.Load(); rt != nil {
		g := rt.Graph()
		data.Stations = g.StationCount()
		data.Lines = g.Lines()
		data.FootSpeed = rt.Params().FootSpeed
		data.Radius = rt.Params().Radius
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.HomePage(data).Render(r.Context(), w); err != nil {
		h.logger.Error("render home page", "error", err)
	}
}

// Health reports whether a station graph is loaded and its size.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if !h.Ready() {
		h.writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "loading"})
		return
	}
	g := h.router.Load().Graph()
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Stations: g.StationCount(),
		Edges:    g.EdgeCount(),
		Lines:    len(g.Lines()),
	})
}

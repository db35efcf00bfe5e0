package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"

	"metropath/internal/realtime"
	"metropath/internal/router"
	"metropath/internal/templates"
)

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	router atomic.Pointer[router.Router]
	rt     *realtime.Store
	logger *slog.Logger
}

// New creates a Handler. r may be nil until a station graph is available.
func New(r *router.Router, rt *realtime.Store, logger *slog.Logger) *Handler {
	h := &Handler{rt: rt, logger: logger}
	if r != nil {
		h.router.Store(r)
	}
	return h
}

// SetRouter swaps in a router over a freshly imported graph. In-flight
// requests finish on the router they started with.
func (h *Handler) SetRouter(r *router.Router) {
	h.router.Store(r)
}

// Ready reports whether a station graph is loaded.
func (h *Handler) Ready() bool {
	return h.router.Load() != nil
}

// page creates a templates.Page for the request.
func (h *Handler) page(title string, r *http.Request) templates.Page {
	return templates.Page{Title: title, CurrentPath: r.URL.Path}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}

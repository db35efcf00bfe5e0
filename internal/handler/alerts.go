package handler

import (
	"net/http"

	"metropath/internal/realtime"
)

// AlertsResponse is the body of GET /api/alerts.
type AlertsResponse struct {
	Alerts []realtime.Alert `json:"alerts"`
}

// Alerts serves the active GTFS-RT service alerts. ?route= narrows them to
// one GTFS route id.
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	resp := AlertsResponse{Alerts: []realtime.Alert{}}
	if h.rt != nil {
		if route := r.URL.Query().Get("route"); route != "" {
			resp.Alerts = append(resp.Alerts, h.rt.AlertsForRoute(route)...)
		} else {
			resp.Alerts = append(resp.Alerts, h.rt.AllAlerts()...)
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

package realtime

import (
	"sort"
	"sync"

	"metropath/internal/itinerary"
)

// Alert represents a parsed service alert.
type Alert struct {
	ID          string   `json:"id"`
	Header      string   `json:"header"`
	Description string   `json:"description,omitempty"`
	RouteIDs    []string `json:"route_ids,omitempty"`
	StopIDs     []string `json:"stop_ids,omitempty"`
	Effect      string   `json:"effect"` // "NO_SERVICE", "REDUCED_SERVICE", "DETOUR", etc.
	Cause       string   `json:"cause"`
}

// Store holds realtime data in a thread-safe manner.
type Store struct {
	mu     sync.RWMutex
	alerts []Alert
	labels map[string]string // route id -> line label
}

// NewStore creates an empty realtime store.
func NewStore() *Store {
	return &Store{labels: map[string]string{}}
}

// SetAlerts replaces all alerts. They are kept sorted by id.
func (s *Store) SetAlerts(alerts []Alert) {
	sorted := make([]Alert, len(alerts))
	copy(sorted, alerts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = sorted
}

// SetLines sets the route id -> line label mapping used to match alerts to
// itinerary lines. Routes without a mapping match by id.
func (s *Store) SetLines(labels map[string]string) {
	m := make(map[string]string, len(labels))
	for k, v := range labels {
		m[k] = v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels = m
}

// AlertsForRoute returns alerts affecting a specific route.
func (s *Store) AlertsForRoute(routeID string) []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Alert
	for _, a := range s.alerts {
		for _, r := range a.RouteIDs {
			if r == routeID {
				result = append(result, a)
				break
			}
		}
	}
	return result
}

// NoticesForLines returns one notice per (line, alert) for alerts affecting
// any of the given lines, in line order then alert id order.
func (s *Store) NoticesForLines(lines []string) []itinerary.Notice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []itinerary.Notice
	for _, line := range lines {
		for _, a := range s.alerts {
			if !s.affects(a, line) {
				continue
			}
			out = append(out, itinerary.Notice{
				Line:        line,
				Header:      a.Header,
				Description: a.Description,
				Effect:      FormatAlertEffect(a.Effect),
			})
		}
	}
	return out
}

func (s *Store) affects(a Alert, line string) bool {
	for _, r := range a.RouteIDs {
		label, ok := s.labels[r]
		if !ok {
			label = r
		}
		if label == line {
			return true
		}
	}
	return false
}

// AllAlerts returns all active alerts.
func (s *Store) AllAlerts() []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// Package itinerary turns a solver path into the stop-by-stop sequence shown
// to travellers.
package itinerary

import (
	"errors"
	"fmt"
	"io"

	"metropath/internal/network"
	"metropath/internal/overlay"
	"metropath/internal/pathfind"
)

// Placeholder is the line shown for the START and END points.
const Placeholder = "/"

var ErrUnknownNode = errors.New("itinerary: path references unknown node")

// Kind tells what a stop is.
type Kind string

const (
	KindStart   Kind = "start"
	KindStation Kind = "station"
	KindEnd     Kind = "end"
)

// Stop is one row of an itinerary.
type Stop struct {
	Label     string  `json:"label"`
	Line      string  `json:"line"`
	Kind      Kind    `json:"kind"`
	StationID string  `json:"station_id,omitempty"`
	Elapsed   float64 `json:"elapsed_minutes"`
	Display   string  `json:"elapsed"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// Notice is a service alert affecting a line of the itinerary.
type Notice struct {
	Line        string `json:"line"`
	Header      string `json:"header"`
	Description string `json:"description,omitempty"`
	Effect      string `json:"effect,omitempty"`
}

// Itinerary is the projected route.
type Itinerary struct {
	Stops    []Stop   `json:"stops"`
	Total    float64  `json:"total_minutes"`
	WalkOnly bool     `json:"walk_only"`
	Lines    []string `json:"lines"`
	Notices  []Notice `json:"notices,omitempty"`
}

// Labeler resolves path node ids. *overlay.Composite implements it.
type Labeler interface {
	Station(id string) (network.Station, bool)
	AdHoc(id string) (overlay.AdHocNode, bool)
}

// Project maps a solver result onto itinerary stops.
func Project(res *pathfind.Result, l Labeler) (*Itinerary, error) {
	it := &Itinerary{
		Stops: make([]Stop, 0, len(res.Path)),
		Total: res.Total,
		Lines: []string{},
	}
	seenLine := make(map[string]bool)

	for i, id := range res.Path {
		stop := Stop{Elapsed: res.Costs[i], Display: FormatMinutes(res.Costs[i])}
		if n, ok := l.AdHoc(id); ok {
			stop.Label = n.ID
			stop.Line = Placeholder
			stop.Kind = KindStart
			if i > 0 {
				stop.Kind = KindEnd
			}
			stop.X, stop.Y = n.Point.X(), n.Point.Y()
		} else if s, ok := l.Station(id); ok {
			stop.Label = s.Name
			stop.Line = s.Line
			stop.Kind = KindStation
			stop.StationID = s.ID
			stop.X, stop.Y = s.X, s.Y
			if s.Line != "" && !seenLine[s.Line] {
				seenLine[s.Line] = true
				it.Lines = append(it.Lines, s.Line)
			}
		} else {
			return nil, fmt.Errorf("%w: %q", ErrUnknownNode, id)
		}
		it.Stops = append(it.Stops, stop)
	}

	it.WalkOnly = len(it.Stops) == 2 && it.Stops[0].Kind == KindStart && it.Stops[1].Kind == KindEnd
	return it, nil
}

// FormatMinutes renders a duration in minutes with two decimals.
func FormatMinutes(m float64) string {
	return fmt.Sprintf("%.2f", m)
}

// Format writes the itinerary in console layout, one stop per line.
func (it *Itinerary) Format(w io.Writer) error {
	for _, s := range it.Stops {
		if _, err := fmt.Fprintf(w, "Station: %-35s Line: %-10s Time: %s\n", s.Label, s.Line, s.Display); err != nil {
			return err
		}
	}
	for _, n := range it.Notices {
		if _, err := fmt.Fprintf(w, "Alert [%s] %s: %s\n", n.Line, n.Effect, n.Header); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy so cached itineraries can be handed out safely.
func (it *Itinerary) Clone() *Itinerary {
	out := *it
	out.Stops = append([]Stop(nil), it.Stops...)
	out.Lines = append([]string{}, it.Lines...)
	out.Notices = append([]Notice(nil), it.Notices...)
	return &out
}

// Package templates renders the HTML pages. Components live in the .templ
// files; run `templ generate` after editing them.
package templates

import (
	"fmt"

	"metropath/internal/itinerary"
)

// Page carries the fields every page needs.
type Page struct {
	Title       string
	CurrentPath string
}

// RouteQuery echoes the submitted coordinates back into the form.
type RouteQuery struct {
	SX, SY, EX, EY string
}

// HomeData is the landing page model.
type HomeData struct {
	Page
	Stations  int
	Lines     []string
	FootSpeed float64
	Radius    float64
}

// ItineraryData is the route result page model.
type ItineraryData struct {
	Page
	Query     RouteQuery
	Itinerary *itinerary.Itinerary
	Error     string
}

func pageTitle(p Page) string {
	if p.Title == "" {
		return "metropath"
	}
	return p.Title + " | metropath"
}

func networkSummary(d HomeData) string {
	return fmt.Sprintf("%d stations on %d lines. Walking at %.1f m/min up to %.0f m to reach a station.",
		d.Stations, len(d.Lines), d.FootSpeed, d.Radius)
}

func itinerarySummary(it *itinerary.Itinerary) string {
	s := fmt.Sprintf("Total %s min", itinerary.FormatMinutes(it.Total))
	if it.WalkOnly {
		s += ", walking only"
	}
	return s
}

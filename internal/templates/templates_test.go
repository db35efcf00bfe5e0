package templates

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"metropath/internal/itinerary"
)

func render(t *testing.T, c interface {
	Render(context.Context, io.Writer) error
}) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestItineraryPage(t *testing.T) {
	it := &itinerary.Itinerary{
		Stops: []itinerary.Stop{
			{Label: "START", Line: "/", Kind: itinerary.KindStart, Display: "0.00"},
			{Label: "Lake <St>", Line: "Blue", Kind: itinerary.KindStation, Display: "2.50"},
			{Label: "END", Line: "/", Kind: itinerary.KindEnd, Display: "4.00"},
		},
		Total:   4,
		Lines:   []string{"Blue"},
		Notices: []itinerary.Notice{{Line: "Blue", Header: "Detour & delays", Effect: "Detour"}},
	}
	html := render(t, ItineraryPage(ItineraryData{
		Page:      Page{Title: "Route"},
		Query:     RouteQuery{SX: "0", SY: "0", EX: "600", EY: `"x`},
		Itinerary: it,
	}))

	for _, want := range []string{
		"<title>Route | metropath</title>",
		"Total 4.00 min",
		"Lake &lt;St&gt;",
		`<td>2.50</td>`,
		"Detour &amp; delays",
		`value="&#34;x"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(html, "walking only") {
		t.Error("transit itinerary labelled walking only")
	}
}

func TestItineraryPage_Error(t *testing.T) {
	html := render(t, ItineraryPage(ItineraryData{Error: "start: invalid <coordinate>"}))
	if !strings.Contains(html, `role="alert">start: invalid &lt;coordinate&gt;</p>`) {
		t.Errorf("error not rendered: %s", html)
	}
	if strings.Contains(html, "<table>") {
		t.Error("error page rendered a table")
	}
}

func TestHomePage(t *testing.T) {
	html := render(t, HomePage(HomeData{Stations: 12, Lines: []string{"A", "B"}, FootSpeed: 66.6, Radius: 1000}))
	if !strings.Contains(html, "12 stations on 2 lines") {
		t.Errorf("summary missing: %s", html)
	}
	if !strings.Contains(html, `<form method="get" action="/route">`) {
		t.Error("form missing")
	}
	if !strings.Contains(html, "<title>metropath</title>") {
		t.Error("default title missing")
	}
}

func TestItineraryPage_WalkOnly(t *testing.T) {
	it := &itinerary.Itinerary{
		Stops: []itinerary.Stop{
			{Label: "START", Line: "/", Kind: itinerary.KindStart, Display: "0.00"},
			{Label: "END", Line: "/", Kind: itinerary.KindEnd, Display: "9.01"},
		},
		Total:    9.01,
		WalkOnly: true,
	}
	html := render(t, ItineraryPage(ItineraryData{Itinerary: it}))

	for _, want := range []string{
		"Total 9.01 min, walking only",
		`<tr data-kind="start"><td>START</td><td>/</td><td>0.00</td></tr>`,
		`<tr data-kind="end">`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(html, `class="alerts"`) {
		t.Error("alerts list rendered without notices")
	}
}

func TestHomePage_NoLines(t *testing.T) {
	html := render(t, HomePage(HomeData{}))
	if strings.Contains(html, `class="lines"`) {
		t.Error("empty line list rendered")
	}
	if !strings.HasPrefix(html, "<!doctype html>") {
		t.Errorf("page does not start with doctype: %.40s", html)
	}
}

package gtfs

import (
	"fmt"
	"strconv"
	"strings"
)

// Feed holds the parsed parts of a GTFS zip needed to build a station graph.
// stop_times.txt is streamed during import and is not held here.
type Feed struct {
	Routes       []Route
	Stops        []Stop
	Trips        []Trip
	LastModified string // From HTTP response header
	ETag         string // From HTTP response header
}

type Route struct {
	RouteID        string `csv:"route_id"`
	RouteShortName string `csv:"route_short_name"`
	RouteLongName  string `csv:"route_long_name"`
	RouteType      string `csv:"route_type"`
}

// Label is the line name shown to travellers.
func (r Route) Label() string {
	switch {
	case r.RouteShortName != "":
		return r.RouteShortName
	case r.RouteLongName != "":
		return r.RouteLongName
	default:
		return r.RouteID
	}
}

type Stop struct {
	StopID        string `csv:"stop_id"`
	StopName      string `csv:"stop_name"`
	StopLat       string `csv:"stop_lat"`
	StopLon       string `csv:"stop_lon"`
	LocationType  string `csv:"location_type"`
	ParentStation string `csv:"parent_station"`
}

type Trip struct {
	TripID  string `csv:"trip_id"`
	RouteID string `csv:"route_id"`
}

type StopTime struct {
	TripID        string `csv:"trip_id"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
	StopID        string `csv:"stop_id"`
	StopSequence  string `csv:"stop_sequence"`
}

// parseClock converts a GTFS HH:MM:SS time to seconds after midnight.
// Hours may exceed 23 for trips running past midnight.
func parseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("bad time %q", s)
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("bad time %q", s)
		}
		n[i] = v
	}
	if n[1] > 59 || n[2] > 59 {
		return 0, fmt.Errorf("bad time %q", s)
	}
	return n[0]*3600 + n[1]*60 + n[2], nil
}

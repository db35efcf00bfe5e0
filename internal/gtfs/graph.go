package gtfs

import (
	"log/slog"
	"sort"
	"strconv"

	"metropath/internal/geo"
	"metropath/internal/network"
	"metropath/internal/storage"
)

// Options controls how a feed becomes a station graph.
type Options struct {
	TransferMinutes float64 // fixed penalty for changing lines
	FootSpeed       float64 // meters per minute, for walks between platforms
}

// DefaultOptions returns the stock import options.
func DefaultOptions() Options {
	return Options{TransferMinutes: 2, FootSpeed: 66.6}
}

// NodeID names the graph node for a stop served by a route.
func NodeID(stopID, routeID string) string {
	return stopID + "@" + routeID
}

type stopPos struct {
	stop     Stop
	lat, lon float64
}

// hubNode is a graph node waiting to be linked to the other nodes of its hub.
type hubNode struct {
	id       string
	lat, lon float64
}

// BuildGraph creates the station graph from a feed and its derived hop
// times. There is one node per (stop, route). Nodes sharing a stop or a
// parent station are joined by transfer edges costing the transfer penalty
// plus the walk between them. It also returns the route id -> line label
// mapping of the routes that made it into the graph.
func BuildGraph(feed *Feed, hops []storage.HopRow, opts Options, logger *slog.Logger) (*network.Graph, map[string]string, error) {
	stops := make(map[string]stopPos, len(feed.Stops))
	for _, s := range feed.Stops {
		lat, err1 := strconv.ParseFloat(s.StopLat, 64)
		lon, err2 := strconv.ParseFloat(s.StopLon, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		stops[s.StopID] = stopPos{stop: s, lat: lat, lon: lon}
	}
	routes := make(map[string]Route, len(feed.Routes))
	for _, r := range feed.Routes {
		routes[r.RouteID] = r
	}

	// Keep only hops whose endpoints have coordinates.
	usable := make([]storage.HopRow, 0, len(hops))
	used := make(map[string]bool)
	skipped := 0
	for _, h := range hops {
		_, okFrom := stops[h.FromStop]
		_, okTo := stops[h.ToStop]
		if !okFrom || !okTo {
			skipped++
			continue
		}
		usable = append(usable, h)
		used[h.FromStop] = true
		used[h.ToStop] = true
	}
	if skipped > 0 {
		logger.Warn("skipped hops with unknown stops", "count", skipped)
	}

	proj := projectionFor(stops, used)

	b := network.NewBuilder()
	lines := make(map[string]string)
	hubs := make(map[string][]hubNode)
	added := make(map[string]bool)

	addNode := func(stopID, routeID string) (string, error) {
		id := NodeID(stopID, routeID)
		if added[id] {
			return id, nil
		}
		if _, ok := lines[routeID]; !ok {
			lines[routeID] = lineLabel(routes, routeID)
		}
		sp := stops[stopID]
		st := network.Station{
			ID:   id,
			Name: sp.stop.StopName,
			Line: lines[routeID],
		}
		if st.Name == "" {
			st.Name = stopID
		}
		pt := proj.Forward(sp.lat, sp.lon)
		st.X, st.Y = pt.X(), pt.Y()

		if err := b.AddStation(st); err != nil {
			return "", err
		}
		added[id] = true
		hub := sp.stop.ParentStation
		if hub == "" {
			hub = stopID
		}
		hubs[hub] = append(hubs[hub], hubNode{id: id, lat: sp.lat, lon: sp.lon})
		return id, nil
	}

	for _, h := range usable {
		from, err := addNode(h.FromStop, h.RouteID)
		if err != nil {
			return nil, nil, err
		}
		to, err := addNode(h.ToStop, h.RouteID)
		if err != nil {
			return nil, nil, err
		}
		if err := b.AddArc(from, to, float64(h.Seconds)/60, network.Transit); err != nil {
			return nil, nil, err
		}
	}

	transfers := 0
	hubIDs := make([]string, 0, len(hubs))
	for id := range hubs {
		hubIDs = append(hubIDs, id)
	}
	sort.Strings(hubIDs)
	for _, hub := range hubIDs {
		nodes := hubs[hub]
		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				walk := geo.Haversine(nodes[i].lat, nodes[i].lon, nodes[j].lat, nodes[j].lon) / opts.FootSpeed
				if err := b.AddEdge(nodes[i].id, nodes[j].id, opts.TransferMinutes+walk, network.Transfer); err != nil {
					return nil, nil, err
				}
				transfers++
			}
		}
	}

	g, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	logger.Info("station graph built",
		"stations", g.StationCount(),
		"arcs", g.EdgeCount(),
		"transfers", transfers,
	)
	return g, lines, nil
}

func lineLabel(routes map[string]Route, routeID string) string {
	if r, ok := routes[routeID]; ok {
		return r.Label()
	}
	return routeID
}

// projectionFor centers a local projection on the mean position of the used
// stops, visited in id order so the result is reproducible.
func projectionFor(stops map[string]stopPos, used map[string]bool) *geo.Projection {
	ids := make([]string, 0, len(used))
	for id := range used {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(ids) == 0 {
		return geo.NewProjection(0, 0)
	}
	var lat, lon float64
	for _, id := range ids {
		lat += stops[id].lat
		lon += stops[id].lon
	}
	n := float64(len(ids))
	return geo.NewProjection(lat/n, lon/n)
}

package realtime

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

func translated(text string) *gtfs.TranslatedString {
	return &gtfs.TranslatedString{
		Translation: []*gtfs.TranslatedString_Translation{{Text: proto.String(text), Language: proto.String("en")}},
	}
}

func alertFeed(t *testing.T) []byte {
	t.Helper()
	msg := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
		Entity: []*gtfs.FeedEntity{
			{
				Id: proto.String("b-detour"),
				Alert: &gtfs.Alert{
					HeaderText:      translated("Blue Line detour"),
					DescriptionText: translated("Shuttle buses replace trains"),
					Effect:          gtfs.Alert_DETOUR.Enum(),
					Cause:           gtfs.Alert_CONSTRUCTION.Enum(),
					InformedEntity: []*gtfs.EntitySelector{
						{RouteId: proto.String("901")},
						{RouteId: proto.String("901"), StopId: proto.String("51405")},
						{Trip: &gtfs.TripDescriptor{TripId: proto.String("t9"), RouteId: proto.String("5")}},
					},
				},
			},
			{
				Id: proto.String("a-delay"),
				Alert: &gtfs.Alert{
					HeaderText:     translated("Route 5 delays"),
					Effect:         gtfs.Alert_SIGNIFICANT_DELAYS.Enum(),
					InformedEntity: []*gtfs.EntitySelector{{RouteId: proto.String("5")}},
				},
			},
			{Id: proto.String("vehicle-only")},
			{
				Id:        proto.String("gone"),
				IsDeleted: proto.Bool(true),
				Alert:     &gtfs.Alert{HeaderText: translated("old")},
			},
		},
	}
	body, err := proto.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func TestDecodeAlerts(t *testing.T) {
	alerts, err := DecodeAlerts(alertFeed(t))
	if err != nil {
		t.Fatalf("DecodeAlerts: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2", len(alerts))
	}
	a := alerts[0]
	if a.ID != "b-detour" || a.Header != "Blue Line detour" || a.Effect != "DETOUR" || a.Cause != "CONSTRUCTION" {
		t.Errorf("alert = %+v", a)
	}
	if len(a.RouteIDs) != 2 || a.RouteIDs[0] != "901" || a.RouteIDs[1] != "5" {
		t.Errorf("RouteIDs = %v, want [901 5]", a.RouteIDs)
	}
	if len(a.StopIDs) != 1 || a.StopIDs[0] != "51405" {
		t.Errorf("StopIDs = %v", a.StopIDs)
	}
}

func TestDecodeAlerts_Garbage(t *testing.T) {
	if _, err := DecodeAlerts([]byte{0xff, 0xff, 0xff}); err == nil {
		t.Fatal("expected error")
	}
}

func TestStore_NoticesForLines(t *testing.T) {
	alerts, err := DecodeAlerts(alertFeed(t))
	if err != nil {
		t.Fatal(err)
	}
	s := NewStore()
	s.SetAlerts(alerts)
	s.SetLines(map[string]string{"901": "Blue"})

	notices := s.NoticesForLines([]string{"Blue", "5", "Green"})
	if len(notices) != 3 {
		t.Fatalf("got %d notices: %+v", len(notices), notices)
	}
	want := []struct{ line, header, effect string }{
		{"Blue", "Blue Line detour", "Detour"},
		{"5", "Route 5 delays", "Significant Delays"},
		{"5", "Blue Line detour", "Detour"},
	}
	for i, w := range want {
		n := notices[i]
		if n.Line != w.line || n.Header != w.header || n.Effect != w.effect {
			t.Errorf("notice %d = %+v, want %+v", i, n, w)
		}
	}

	if got := s.NoticesForLines(nil); len(got) != 0 {
		t.Errorf("NoticesForLines(nil) = %+v", got)
	}
}

func TestStore_AlertsForRouteAndAll(t *testing.T) {
	s := NewStore()
	s.SetAlerts([]Alert{
		{ID: "2", RouteIDs: []string{"A"}},
		{ID: "1", RouteIDs: []string{"A", "B"}},
	})

	if got := s.AlertsForRoute("A"); len(got) != 2 || got[0].ID != "1" {
		t.Errorf("AlertsForRoute(A) = %+v", got)
	}
	if got := s.AlertsForRoute("C"); len(got) != 0 {
		t.Errorf("AlertsForRoute(C) = %+v", got)
	}

	all := s.AllAlerts()
	all[0].ID = "mutated"
	if s.AllAlerts()[0].ID != "1" {
		t.Error("AllAlerts exposed internal slice")
	}
}

func TestStore_Concurrent(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetAlerts([]Alert{{ID: "x", RouteIDs: []string{"1"}}})
		}()
		go func() {
			defer wg.Done()
			s.NoticesForLines([]string{"1"})
		}()
	}
	wg.Wait()
}

func TestFetcher_Fetch(t *testing.T) {
	body := alertFeed(t)
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	store := NewStore()
	f := NewFetcher(srv.URL, time.Minute, store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := f.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if n := len(store.AllAlerts()); n != 2 {
		t.Fatalf("stored %d alerts, want 2", n)
	}

	fail.Store(true)
	if err := f.Fetch(context.Background()); err == nil {
		t.Fatal("expected error on 502")
	}
	if n := len(store.AllAlerts()); n != 2 {
		t.Errorf("failed fetch changed alerts: %d", n)
	}
}

func TestFormatAlertEffect(t *testing.T) {
	tests := map[string]string{
		"NO_SERVICE":     "No Service",
		"DETOUR":         "Detour",
		"UNKNOWN_EFFECT": "Alert",
		"":               "Alert",
	}
	for in, want := range tests {
		if got := FormatAlertEffect(in); got != want {
			t.Errorf("FormatAlertEffect(%q) = %q, want %q", in, got, want)
		}
	}
}

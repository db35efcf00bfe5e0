package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testNetwork = `
stations:
  - {id: P, name: Plaza, line: "1", x: 0, y: 0}
  - {id: Q, name: Quay, line: "1", x: 600, y: 0}
edges:
  - {from: P, to: Q, minutes: 3}
`

func writeNetwork(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "net.yaml")
	if err := os.WriteFile(path, []byte(testNetwork), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_PrintsItinerary(t *testing.T) {
	t.Setenv("METROPATH_CONFIG", "")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-network", writeNetwork(t), "0", "0", "600", "0"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}

	lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), stdout.String())
	}
	want := []string{
		"Station: START                               Line: /          Time: 0.00",
		"Station: Plaza                               Line: 1          Time: 0.00",
		"Station: Quay                                Line: 1          Time: 3.00",
		"Station: END                                 Line: /          Time: 3.00",
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d:\n got %q\nwant %q", i, lines[i], want[i])
		}
	}
}

func TestRun_FootSpeedFlag(t *testing.T) {
	t.Setenv("METROPATH_CONFIG", "")
	var stdout, stderr bytes.Buffer
	args := []string{"-network", writeNetwork(t), "-radius", "0", "-foot-speed", "100", "1", "0", "601", "0"}
	if code := run(context.Background(), args, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Station: END") || !strings.Contains(stdout.String(), "Time: 6.00") {
		t.Errorf("walk-only itinerary not printed:\n%s", stdout.String())
	}
}

func TestRun_ImportNetworkThenRouteFromDatabase(t *testing.T) {
	t.Setenv("METROPATH_CONFIG", "")
	db := filepath.Join(t.TempDir(), "metropath.db")

	var stdout, stderr bytes.Buffer
	args := []string{"-db", db, "-network", writeNetwork(t), "-import-gtfs"}
	if code := run(context.Background(), args, &stdout, &stderr); code != 0 {
		t.Fatalf("import exit %d, stderr: %s", code, stderr.String())
	}

	stderr.Reset()
	if code := run(context.Background(), []string{"-db", db, "0", "0", "600", "0"}, &stdout, &stderr); code != 0 {
		t.Fatalf("route exit %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Station: Quay") || !strings.Contains(stdout.String(), "Time: 3.00") {
		t.Errorf("itinerary from stored network:\n%s", stdout.String())
	}
}

func TestRun_Errors(t *testing.T) {
	t.Setenv("METROPATH_CONFIG", "")
	net := writeNetwork(t)
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"too few coordinates", []string{"-network", net, "0", "0", "600"}, 2},
		{"not a number", []string{"-network", net, "0", "zero", "600", "0"}, 2},
		{"invalid foot speed", []string{"-network", net, "-foot-speed", "0", "0", "0", "1", "1"}, 2},
		{"missing network file", []string{"-network", filepath.Join(t.TempDir(), "none.yaml"), "0", "0", "1", "1"}, 1},
		{"non-finite coordinate", []string{"-network", net, "NaN", "0", "1", "1"}, 1},
		{"extra args with serve", []string{"-serve", "1"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(context.Background(), tt.args, &stdout, &stderr); code != tt.code {
				t.Errorf("exit %d, want %d; stderr: %s", code, tt.code, stderr.String())
			}
			if stdout.Len() != 0 {
				t.Errorf("unexpected output: %s", stdout.String())
			}
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("METROPATH_CONFIG", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FootSpeed != 66.6 {
		t.Errorf("FootSpeed = %v, want 66.6", cfg.FootSpeed)
	}
	if cfg.Radius != 1000 {
		t.Errorf("Radius = %v, want 1000", cfg.Radius)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metropath.yml")
	doc := `
port: 9090
foot_speed: 80
radius: 750
cache_ttl: 30s
network_file: ./net.yaml
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("METROPATH_RADIUS", "500")
	t.Setenv("METROPATH_PORT", "not-a-number")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"port from file, bad env ignored", cfg.Port, 9090},
		{"foot speed from file", cfg.FootSpeed, 80.0},
		{"radius from env", cfg.Radius, 500.0},
		{"cache ttl", cfg.CacheTTL, 30 * time.Second},
		{"network file", cfg.NetworkFile, "./net.yaml"},
		{"untouched default", cfg.TransferMinutes, 2.0},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoad_EnvConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yml")
	if err := os.WriteFile(path, []byte("radius: 250\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("METROPATH_CONFIG", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Radius != 250 {
		t.Errorf("Radius = %v, want 250", cfg.Radius)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"zero foot speed", "foot_speed: 0\n", "FootSpeed"},
		{"negative radius", "radius: -1\n", "Radius"},
		{"bad port", "port: 70000\n", "Port"},
		{"bad url", "alerts_url: not a url\n", "AlertsURL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yml")
			if err := os.WriteFile(path, []byte(tt.doc), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name %s", err, tt.field)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yml")
	if err := os.WriteFile(path, []byte("port: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration. Values come from defaults, then an
// optional YAML file, then environment variables; command-line flags are
// applied by the caller afterwards.
type Config struct {
	Port        int    `yaml:"port" validate:"gt=0,lte=65535"`
	DBPath      string `yaml:"db_path" validate:"required"`
	GTFSDir     string `yaml:"gtfs_dir" validate:"required"`
	GTFSURL     string `yaml:"gtfs_url" validate:"omitempty,url"`
	AlertsURL   string `yaml:"alerts_url" validate:"omitempty,url"`
	NetworkFile string `yaml:"network_file"`

	FootSpeed       float64 `yaml:"foot_speed" validate:"gt=0"`       // meters per minute
	Radius          float64 `yaml:"radius" validate:"gte=0"`          // meters
	TransferMinutes float64 `yaml:"transfer_minutes" validate:"gte=0"` // interchange penalty on GTFS import
	MaxCoordinate   float64 `yaml:"max_coordinate" validate:"gt=0"`

	CacheSize      int           `yaml:"cache_size" validate:"gte=0"` // 0 disables the route cache
	CacheTTL       time.Duration `yaml:"cache_ttl" validate:"gte=0"`
	AlertsInterval time.Duration `yaml:"alerts_interval" validate:"gte=0"`

	ImportGTFS bool `yaml:"-"` // CLI flag: force GTFS re-import
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:            8080,
		DBPath:          "./metropath.db",
		GTFSDir:         "./data",
		GTFSURL:         "https://svc.metrotransit.org/mtgtfs/gtfs.zip",
		FootSpeed:       66.6,
		Radius:          1000,
		TransferMinutes: 2,
		MaxCoordinate:   1e9,
		CacheSize:       1024,
		CacheTTL:        10 * time.Minute,
		AlertsInterval:  60 * time.Second,
	}
}

// Load builds the configuration. path names an optional YAML file; when empty,
// METROPATH_CONFIG is consulted.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("METROPATH_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Port = envInt("METROPATH_PORT", cfg.Port)
	cfg.DBPath = envStr("METROPATH_DB_PATH", cfg.DBPath)
	cfg.GTFSDir = envStr("METROPATH_GTFS_DIR", cfg.GTFSDir)
	cfg.GTFSURL = envStr("METROPATH_GTFS_URL", cfg.GTFSURL)
	cfg.AlertsURL = envStr("METROPATH_ALERTS_URL", cfg.AlertsURL)
	cfg.NetworkFile = envStr("METROPATH_NETWORK_FILE", cfg.NetworkFile)
	cfg.FootSpeed = envFloat("METROPATH_FOOT_SPEED", cfg.FootSpeed)
	cfg.Radius = envFloat("METROPATH_RADIUS", cfg.Radius)
	cfg.TransferMinutes = envFloat("METROPATH_TRANSFER_MINUTES", cfg.TransferMinutes)
	cfg.MaxCoordinate = envFloat("METROPATH_MAX_COORDINATE", cfg.MaxCoordinate)
	cfg.CacheSize = envInt("METROPATH_CACHE_SIZE", cfg.CacheSize)
	cfg.CacheTTL = envDuration("METROPATH_CACHE_TTL", cfg.CacheTTL)
	cfg.AlertsInterval = envDuration("METROPATH_ALERTS_INTERVAL", cfg.AlertsInterval)
	cfg.ImportGTFS = envBool("METROPATH_IMPORT_GTFS", cfg.ImportGTFS)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints. Call it again after applying flags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s fails %q", verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

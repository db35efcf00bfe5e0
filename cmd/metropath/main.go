package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/paulmach/orb"

	"metropath/internal/config"
	"metropath/internal/gtfs"
	"metropath/internal/handler"
	"metropath/internal/network"
	"metropath/internal/overlay"
	"metropath/internal/realtime"
	"metropath/internal/router"
	"metropath/internal/server"
	"metropath/internal/storage"
)

const usage = `usage: metropath [flags] X_START Y_START X_END Y_END
       metropath [flags] -serve
       metropath [flags] -import-gtfs

Coordinates are planar meters in the station network's system.

`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	serve      bool
	verbose    bool
	coords     [4]float64
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "load .env: %v\n", err)
	}

	cfg, opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	level := slog.LevelWarn
	if opts.serve || cfg.ImportGTFS || opts.verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	switch {
	case cfg.ImportGTFS:
		return importOnly(ctx, cfg, logger)
	case opts.serve:
		return serve(ctx, cfg, logger)
	default:
		return routeOnce(ctx, cfg, opts, stdout, logger)
	}
}

// parseFlags loads configuration and applies command-line overrides on top.
func parseFlags(args []string, stderr io.Writer) (*config.Config, options, error) {
	var opts options
	fs := flag.NewFlagSet("metropath", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	def := config.Default()
	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	fs.BoolVar(&opts.serve, "serve", false, "Start the HTTP server")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	importGTFS := fs.Bool("import-gtfs", false, "Import the station network into the database, then exit. Uses -network when set, otherwise downloads the GTFS feed")
	port := fs.Int("port", def.Port, "HTTP server port")
	dbPath := fs.String("db", def.DBPath, "SQLite database path")
	gtfsDir := fs.String("gtfs-dir", def.GTFSDir, "Directory for downloaded GTFS files")
	networkFile := fs.String("network", "", "Load the station network from a YAML file instead of the database")
	footSpeed := fs.Float64("foot-speed", def.FootSpeed, "Walking speed in meters per minute")
	radius := fs.Float64("radius", def.Radius, "Maximum walk to a station in meters")
	alertsURL := fs.String("alerts-url", "", "GTFS-RT service alerts feed URL")

	if err := fs.Parse(args); err != nil {
		return nil, opts, err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, opts, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "import-gtfs":
			cfg.ImportGTFS = *importGTFS
		case "port":
			cfg.Port = *port
		case "db":
			cfg.DBPath = *dbPath
		case "gtfs-dir":
			cfg.GTFSDir = *gtfsDir
		case "network":
			cfg.NetworkFile = *networkFile
		case "foot-speed":
			cfg.FootSpeed = *footSpeed
		case "radius":
			cfg.Radius = *radius
		case "alerts-url":
			cfg.AlertsURL = *alertsURL
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, opts, err
	}

	rest := fs.Args()
	if opts.serve || cfg.ImportGTFS {
		if len(rest) != 0 {
			return nil, opts, fmt.Errorf("unexpected arguments: %v", rest)
		}
		return cfg, opts, nil
	}
	if len(rest) != 4 {
		fs.Usage()
		return nil, opts, fmt.Errorf("expected 4 coordinates, got %d", len(rest))
	}
	for i, s := range rest {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, opts, fmt.Errorf("coordinate %d: %q is not a number", i+1, s)
		}
		opts.coords[i] = v
	}
	return cfg, opts, nil
}

func importOnly(ctx context.Context, cfg *config.Config, logger *slog.Logger) int {
	db, err := storage.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return 1
	}
	defer db.Close()

	if cfg.NetworkFile != "" {
		g, err := network.LoadFile(cfg.NetworkFile)
		if err != nil {
			logger.Error("failed to load station network", "error", err)
			return 1
		}
		if err := db.ReplaceNetwork(ctx, g); err != nil {
			logger.Error("network import failed", "error", err)
			return 1
		}
		logger.Info("station network imported", "file", cfg.NetworkFile,
			"stations", g.StationCount(), "edges", g.EdgeCount())
		return 0
	}

	logger.Info("force importing GTFS data")
	if err := newScheduler(cfg, db, logger).Update(ctx); err != nil {
		logger.Error("GTFS import failed", "error", err)
		return 1
	}
	return 0
}

func routeOnce(ctx context.Context, cfg *config.Config, opts options, stdout io.Writer, logger *slog.Logger) int {
	g, _, closeDB, err := loadNetwork(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to load station network", "error", err)
		return 1
	}
	defer closeDB()

	rt, err := newRouter(g, cfg, logger, nil)
	if err != nil {
		logger.Error("failed to create router", "error", err)
		return 1
	}

	c := opts.coords
	it, err := rt.Route(ctx, orb.Point{c[0], c[1]}, orb.Point{c[2], c[3]})
	if err != nil {
		logger.Error("routing failed", "error", err)
		return 1
	}
	if err := it.Format(stdout); err != nil {
		logger.Error("write itinerary", "error", err)
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) int {
	rtStore := realtime.NewStore()
	if cfg.AlertsURL != "" {
		fetcher := realtime.NewFetcher(cfg.AlertsURL, cfg.AlertsInterval, rtStore, logger)
		go fetcher.Start(ctx)
	}

	h := handler.New(nil, rtStore, logger)

	g, db, closeDB, err := loadNetwork(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to load station network", "error", err)
		return 1
	}
	defer closeDB()

	rt, err := newRouter(g, cfg, logger, rtStore)
	if err != nil {
		logger.Error("failed to create router", "error", err)
		return 1
	}
	h.SetRouter(rt)

	if db != nil {
		if lines, err := db.Lines(ctx); err == nil {
			rtStore.SetLines(lines)
		}
		if cfg.GTFSURL != "" {
			scheduler := newScheduler(cfg, db, logger)
			scheduler.OnImport = func(g *network.Graph) {
				next, err := newRouter(g, cfg, logger, rtStore)
				if err != nil {
					logger.Error("rebuild router", "error", err)
					return
				}
				if lines, err := db.Lines(ctx); err == nil {
					rtStore.SetLines(lines)
				}
				h.SetRouter(next)
				logger.Info("router swapped to new station graph", "stations", g.StationCount())
			}
			go scheduler.StartBackground(ctx)
			go func() {
				if err := scheduler.CheckAndUpdate(ctx); err != nil {
					logger.Error("daily GTFS check failed", "error", err)
				}
			}()
		}
	}

	srv := server.New(cfg, h, logger)
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server error", "error", err)
		return 1
	}
	return 0
}

// loadNetwork returns the station graph from the YAML file when one is
// configured, otherwise from SQLite, importing the GTFS feed on first run.
// The returned db is nil in the YAML case.
func loadNetwork(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*network.Graph, *storage.DB, func(), error) {
	if cfg.NetworkFile != "" {
		g, err := network.LoadFile(cfg.NetworkFile)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("station network loaded", "file", cfg.NetworkFile,
			"stations", g.StationCount(), "edges", g.EdgeCount())
		return g, nil, func() {}, nil
	}

	db, err := storage.Open(cfg.DBPath, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.GTFSURL != "" {
		if err := newScheduler(cfg, db, logger).EnsureData(ctx); err != nil {
			logger.Error("failed to ensure GTFS data", "error", err)
		}
	}
	g, err := db.LoadNetwork(ctx)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return g, db, func() { db.Close() }, nil
}

func newScheduler(cfg *config.Config, db *storage.DB, logger *slog.Logger) *gtfs.Scheduler {
	downloader := gtfs.NewDownloader(cfg.GTFSURL, cfg.GTFSDir, logger)
	importer := gtfs.NewImporter(db, gtfs.Options{
		TransferMinutes: cfg.TransferMinutes,
		FootSpeed:       cfg.FootSpeed,
	}, logger)
	return gtfs.NewScheduler(downloader, importer, db, logger)
}

func newRouter(g *network.Graph, cfg *config.Config, logger *slog.Logger, alerts router.AlertSource) (*router.Router, error) {
	opts := []router.Option{
		router.WithLogger(logger),
		router.WithParams(overlay.Params{FootSpeed: cfg.FootSpeed, Radius: cfg.Radius}),
		router.WithMaxCoordinate(cfg.MaxCoordinate),
		router.WithCache(cfg.CacheSize, cfg.CacheTTL),
	}
	if alerts != nil {
		opts = append(opts, router.WithAlerts(alerts))
	}
	return router.New(g, opts...)
}

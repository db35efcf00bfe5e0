package gtfs

import (
	"archive/zip"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"metropath/internal/network"
	"metropath/internal/storage"
)

// Importer turns a GTFS feed into a station graph and stores it in SQLite.
type Importer struct {
	db     *storage.DB
	opts   Options
	logger *slog.Logger
}

// NewImporter creates an Importer. A zero or negative foot speed falls back
// to the default.
func NewImporter(db *storage.DB, opts Options, logger *slog.Logger) *Importer {
	if opts.FootSpeed <= 0 {
		opts.FootSpeed = DefaultOptions().FootSpeed
	}
	return &Importer{db: db, opts: opts, logger: logger}
}

// Import stages trips and stop_times from the zip, derives hop times, builds
// the station graph and replaces the stored one. The entire operation runs in
// a single transaction for atomicity.
func (imp *Importer) Import(ctx context.Context, feed *Feed, zipPath string) (*network.Graph, error) {
	start := time.Now()

	tx, err := imp.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := imp.db.ClearStaging(ctx, tx); err != nil {
		return nil, err
	}
	if err := imp.importTrips(ctx, tx, feed.Trips); err != nil {
		return nil, err
	}
	if err := imp.streamStopTimes(ctx, tx, zipPath); err != nil {
		return nil, err
	}

	filled, dropped, err := imp.db.InterpolateStopTimes(ctx, tx)
	if err != nil {
		return nil, err
	}
	if filled > 0 || dropped > 0 {
		imp.logger.Info("interpolated untimed stops", "filled", filled, "dropped", dropped)
	}

	hops, err := imp.db.HopTimes(ctx, tx)
	if err != nil {
		return nil, err
	}

	g, lines, err := BuildGraph(feed, hops, imp.opts, imp.logger)
	if err != nil {
		return nil, fmt.Errorf("build station graph: %w", err)
	}

	if err := imp.db.SaveNetwork(ctx, tx, g); err != nil {
		return nil, err
	}
	if err := imp.db.SaveLines(ctx, tx, lines); err != nil {
		return nil, err
	}
	if err := imp.db.ClearStaging(ctx, tx); err != nil {
		return nil, err
	}

	meta := map[string]string{
		"imported_at":   time.Now().UTC().Format(time.RFC3339),
		"last_modified": feed.LastModified,
		"etag":          feed.ETag,
	}
	for k, v := range meta {
		if v == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO feed_metadata (key, value) VALUES (?, ?)`, k, v); err != nil {
			return nil, fmt.Errorf("set %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	imp.logger.Info("GTFS import complete",
		"duration", time.Since(start).Round(time.Millisecond),
		"hops", len(hops),
		"stations", g.StationCount(),
		"edges", g.EdgeCount(),
		"lines", len(lines),
	)
	return g, nil
}

func (imp *Importer) importTrips(ctx context.Context, tx *sql.Tx, trips []Trip) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO trips (trip_id, route_id) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare trips: %w", err)
	}
	defer stmt.Close()

	for _, t := range trips {
		if _, err := stmt.ExecContext(ctx, t.TripID, t.RouteID); err != nil {
			return fmt.Errorf("insert trip %s: %w", t.TripID, err)
		}
	}
	imp.logger.Info("staged trips", "count", len(trips))
	return nil
}

// streamStopTimes reads stop_times.txt directly from the zip in a streaming fashion.
func (imp *Importer) streamStopTimes(ctx context.Context, tx *sql.Tx, zipPath string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open zip for stop_times: %w", err)
	}
	defer r.Close()

	var stopTimesFile *zip.File
	for _, f := range r.File {
		if f.Name == "stop_times.txt" {
			stopTimesFile = f
			break
		}
	}
	if stopTimesFile == nil {
		return fmt.Errorf("%w: stop_times.txt", ErrMissingFile)
	}

	streamer, err := OpenCSVStream[StopTime](stopTimesFile)
	if err != nil {
		return fmt.Errorf("open stop_times stream: %w", err)
	}
	defer streamer.Close()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO stop_times (trip_id, stop_id, stop_sequence, arrival_sec, departure_sec)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare stop_times: %w", err)
	}
	defer stmt.Close()

	count, skipped := 0, 0
	var st StopTime
	for {
		err := streamer.Next(&st)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read stop_time row %d: %w", count, err)
		}

		seq, arr, dep, ok := stopTimeValues(st)
		if !ok {
			skipped++
			continue
		}
		if _, err := stmt.ExecContext(ctx, st.TripID, st.StopID, seq, arr, dep); err != nil {
			return fmt.Errorf("insert stop_time row %d: %w", count, err)
		}
		count++

		if count%500000 == 0 {
			imp.logger.Info("staging stop_times", "rows", count)
		}
	}

	if skipped > 0 {
		imp.logger.Warn("skipped stop_times with unparseable values", "count", skipped)
	}
	imp.logger.Info("staged stop_times", "count", count)
	return nil
}

// stopTimeValues parses the sequence and times of a row. A missing arrival
// or departure borrows the other. Rows with neither are untimed stops: they
// come back with invalid times and are interpolated after staging.
func stopTimeValues(st StopTime) (seq int, arr, dep sql.NullInt64, ok bool) {
	seq, err := strconv.Atoi(st.StopSequence)
	if err != nil {
		return 0, arr, dep, false
	}
	if st.ArrivalTime == "" {
		st.ArrivalTime = st.DepartureTime
	}
	if st.DepartureTime == "" {
		st.DepartureTime = st.ArrivalTime
	}
	if st.ArrivalTime == "" {
		return seq, arr, dep, true
	}
	a, err := parseClock(st.ArrivalTime)
	if err != nil {
		return 0, arr, dep, false
	}
	d, err := parseClock(st.DepartureTime)
	if err != nil {
		return 0, arr, dep, false
	}
	return seq, sql.NullInt64{Int64: int64(a), Valid: true}, sql.NullInt64{Int64: int64(d), Valid: true}, true
}

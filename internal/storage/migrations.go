package storage

import "fmt"

// schemaVersion is kept in PRAGMA user_version. Version 2 made the staged
// stop times nullable so untimed stops can be interpolated.
const schemaVersion = 2

// migrate creates the schema if it doesn't exist and upgrades older files.
func (db *DB) migrate() error {
	var version int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version < 2 {
		// Staging only, nothing to keep.
		if _, err := db.Exec(`DROP TABLE IF EXISTS stop_times`); err != nil {
			return fmt.Errorf("drop staged stop_times: %w", err)
		}
	}
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	if version != schemaVersion {
		if _, err := db.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		db.logger.Info("database schema upgraded", "from", version, "to", schemaVersion)
	}
	return nil
}

var migrations = []string{
	// Station graph nodes: one row per (stop, line), planar meters.
	`CREATE TABLE IF NOT EXISTS stations (
		station_id TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		line       TEXT NOT NULL DEFAULT '',
		x          REAL NOT NULL,
		y          REAL NOT NULL
	)`,

	// Directed arcs between stations.
	`CREATE TABLE IF NOT EXISTS edges (
		from_id TEXT NOT NULL REFERENCES stations(station_id),
		to_id   TEXT NOT NULL REFERENCES stations(station_id),
		minutes REAL NOT NULL CHECK (minutes >= 0),
		kind    TEXT NOT NULL DEFAULT 'transit',
		PRIMARY KEY (from_id, to_id, kind)
	)`,

	// GTFS route id -> displayed line label, used to match service alerts.
	`CREATE TABLE IF NOT EXISTS lines (
		route_id TEXT PRIMARY KEY,
		label    TEXT NOT NULL
	)`,

	// Import staging: trips and stop times are only kept long enough to
	// derive hop times.
	`CREATE TABLE IF NOT EXISTS trips (
		trip_id  TEXT PRIMARY KEY,
		route_id TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stop_times (
		trip_id       TEXT NOT NULL,
		stop_id       TEXT NOT NULL,
		stop_sequence INTEGER NOT NULL,
		arrival_sec   INTEGER, -- NULL until interpolated for untimed stops
		departure_sec INTEGER,
		PRIMARY KEY (trip_id, stop_sequence)
	)`,

	// Feed metadata (last_modified, etag, imported_at, etc.)
	`CREATE TABLE IF NOT EXISTS feed_metadata (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_id)`,
	`CREATE INDEX IF NOT EXISTS idx_stations_line ON stations(line)`,
}

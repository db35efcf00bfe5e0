package storage

import (
	"context"
	"database/sql"
	"fmt"

	"metropath/internal/network"
)

// GetMetadata retrieves a value from the feed_metadata table.
func (db *DB) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM feed_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetMetadata stores a key-value pair in the feed_metadata table.
func (db *DB) SetMetadata(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO feed_metadata (key, value) VALUES (?, ?)`,
		key, value)
	return err
}

// HasData returns true if a station graph has been stored.
func (db *DB) HasData(ctx context.Context) bool {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stations`).Scan(&count)
	return err == nil && count > 0
}

// SaveNetwork replaces the stored station graph inside tx.
func (db *DB) SaveNetwork(ctx context.Context, tx *sql.Tx, g *network.Graph) error {
	for _, t := range []string{"edges", "stations"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", t)); err != nil {
			return fmt.Errorf("clear %s: %w", t, err)
		}
	}

	stStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO stations (station_id, name, line, x, y) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare stations: %w", err)
	}
	defer stStmt.Close()

	for _, s := range g.Stations() {
		if _, err := stStmt.ExecContext(ctx, s.ID, s.Name, s.Line, s.X, s.Y); err != nil {
			return fmt.Errorf("insert station %s: %w", s.ID, err)
		}
	}

	edStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO edges (from_id, to_id, minutes, kind) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare edges: %w", err)
	}
	defer edStmt.Close()

	for _, e := range g.Edges() {
		if _, err := edStmt.ExecContext(ctx, e.From, e.To, e.Minutes, string(e.Kind)); err != nil {
			return fmt.Errorf("insert edge %s->%s: %w", e.From, e.To, err)
		}
	}

	db.logger.Info("station graph saved", "stations", g.StationCount(), "edges", g.EdgeCount())
	return nil
}

// ReplaceNetwork stores g in its own transaction.
func (db *DB) ReplaceNetwork(ctx context.Context, g *network.Graph) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := db.SaveNetwork(ctx, tx, g); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadNetwork reads the stored station graph.
func (db *DB) LoadNetwork(ctx context.Context) (*network.Graph, error) {
	b := network.NewBuilder()

	rows, err := db.QueryContext(ctx, `SELECT station_id, name, line, x, y FROM stations`)
	if err != nil {
		return nil, fmt.Errorf("stations query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s network.Station
		if err := rows.Scan(&s.ID, &s.Name, &s.Line, &s.X, &s.Y); err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		if err := b.AddStation(s); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	edgeRows, err := db.QueryContext(ctx, `SELECT from_id, to_id, minutes, kind FROM edges`)
	if err != nil {
		return nil, fmt.Errorf("edges query: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var from, to, kind string
		var minutes float64
		if err := edgeRows.Scan(&from, &to, &minutes, &kind); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		if err := b.AddArc(from, to, minutes, network.EdgeKind(kind)); err != nil {
			return nil, err
		}
	}
	if err := edgeRows.Err(); err != nil {
		return nil, err
	}

	g, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build station graph: %w", err)
	}
	db.logger.Info("station graph loaded", "stations", g.StationCount(), "edges", g.EdgeCount())
	return g, nil
}

// SaveLines replaces the route id -> line label mapping inside tx.
func (db *DB) SaveLines(ctx context.Context, tx *sql.Tx, lines map[string]string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM lines`); err != nil {
		return fmt.Errorf("clear lines: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO lines (route_id, label) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare lines: %w", err)
	}
	defer stmt.Close()

	for id, label := range lines {
		if _, err := stmt.ExecContext(ctx, id, label); err != nil {
			return fmt.Errorf("insert line %s: %w", id, err)
		}
	}
	return nil
}

// Lines returns the route id -> line label mapping.
func (db *DB) Lines(ctx context.Context) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT route_id, label FROM lines`)
	if err != nil {
		return nil, fmt.Errorf("lines query: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, label string
		if err := rows.Scan(&id, &label); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		out[id] = label
	}
	return out, rows.Err()
}

// HopRow is the fastest observed ride between two consecutive stops of a route.
type HopRow struct {
	RouteID  string
	FromStop string
	ToStop   string
	Seconds  int
}

// InterpolateStopTimes fills the times of staged untimed stops. Each run of
// untimed stops between two timed ones shares the gap evenly by position in
// the trip. Untimed stops before the first or after the last timed stop of a
// trip cannot be placed and are deleted.
func (db *DB) InterpolateStopTimes(ctx context.Context, tx *sql.Tx) (filled, dropped int, err error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT trip_id, stop_sequence, arrival_sec, departure_sec
		FROM stop_times
		WHERE trip_id IN (SELECT trip_id FROM stop_times WHERE arrival_sec IS NULL)
		ORDER BY trip_id, stop_sequence`)
	if err != nil {
		return 0, 0, fmt.Errorf("untimed stop_times query: %w", err)
	}

	type staged struct {
		trip     string
		seq      int
		arr, dep sql.NullInt64
	}
	var all []staged
	for rows.Next() {
		var s staged
		if err := rows.Scan(&s.trip, &s.seq, &s.arr, &s.dep); err != nil {
			rows.Close()
			return 0, 0, fmt.Errorf("scan stop_time: %w", err)
		}
		all = append(all, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, 0, err
	}

	update, err := tx.PrepareContext(ctx,
		`UPDATE stop_times SET arrival_sec = ?, departure_sec = ? WHERE trip_id = ? AND stop_sequence = ?`)
	if err != nil {
		return 0, 0, fmt.Errorf("prepare interpolation: %w", err)
	}
	defer update.Close()

	for start := 0; start < len(all); {
		end := start
		for end < len(all) && all[end].trip == all[start].trip {
			end++
		}
		trip := all[start:end]

		prev := -1 // index of the last timed stop
		for i := range trip {
			if !trip[i].arr.Valid {
				continue
			}
			if prev >= 0 && i-prev > 1 {
				from, to := trip[prev].dep.Int64, trip[i].arr.Int64
				for k := prev + 1; k < i; k++ {
					t := from + (to-from)*int64(k-prev)/int64(i-prev)
					if _, err := update.ExecContext(ctx, t, t, trip[k].trip, trip[k].seq); err != nil {
						return filled, dropped, fmt.Errorf("interpolate %s/%d: %w", trip[k].trip, trip[k].seq, err)
					}
					filled++
				}
			}
			prev = i
		}
		start = end
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM stop_times WHERE arrival_sec IS NULL`)
	if err != nil {
		return filled, dropped, fmt.Errorf("delete unplaced stop_times: %w", err)
	}
	n, _ := res.RowsAffected()
	return filled, int(n), nil
}

// HopTimes derives per-route hop times from the staged trips and stop_times.
// Trips whose next arrival precedes the departure are ignored.
func (db *DB) HopTimes(ctx context.Context, tx *sql.Tx) ([]HopRow, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT t.route_id, h.stop_id, h.next_stop, MIN(h.next_arrival - h.departure_sec)
		FROM (
			SELECT trip_id, stop_id, departure_sec,
			       LEAD(stop_id) OVER w AS next_stop,
			       LEAD(arrival_sec) OVER w AS next_arrival
			FROM stop_times
			WINDOW w AS (PARTITION BY trip_id ORDER BY stop_sequence)
		) AS h
		JOIN trips AS t ON t.trip_id = h.trip_id
		WHERE h.next_stop IS NOT NULL
		  AND h.next_stop <> h.stop_id
		  AND h.next_arrival >= h.departure_sec
		GROUP BY t.route_id, h.stop_id, h.next_stop
		ORDER BY t.route_id, h.stop_id, h.next_stop`)
	if err != nil {
		return nil, fmt.Errorf("hop times query: %w", err)
	}
	defer rows.Close()

	var hops []HopRow
	for rows.Next() {
		var h HopRow
		if err := rows.Scan(&h.RouteID, &h.FromStop, &h.ToStop, &h.Seconds); err != nil {
			return nil, fmt.Errorf("scan hop: %w", err)
		}
		hops = append(hops, h)
	}
	return hops, rows.Err()
}

// ClearStaging empties the import staging tables.
func (db *DB) ClearStaging(ctx context.Context, tx *sql.Tx) error {
	for _, t := range []string{"stop_times", "trips"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", t)); err != nil {
			return fmt.Errorf("clear %s: %w", t, err)
		}
	}
	return nil
}

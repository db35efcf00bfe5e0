package storage

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-memory database instead of a file.
const MemoryPath = ":memory:"

// DB wraps a SQLite database connection holding the station graph.
type DB struct {
	*sql.DB
	logger *slog.Logger
}

// Open creates or opens the station database at path and brings its schema
// up to date. MemoryPath gives a throwaway database on a single connection.
func Open(path string, logger *slog.Logger) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == MemoryPath {
		// Every connection to :memory: is a separate database.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{DB: sqlDB, logger: logger}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	var stations, edges int
	if err := db.QueryRow(`SELECT (SELECT COUNT(*) FROM stations), (SELECT COUNT(*) FROM edges)`).Scan(&stations, &edges); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("count stored graph: %w", err)
	}
	logger.Info("station database opened",
		"path", path,
		"schema", schemaVersion,
		"stations", stations,
		"edges", edges,
	)
	return db, nil
}

func dsn(path string) string {
	if path == MemoryPath {
		return "file::memory:?_foreign_keys=on"
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
}

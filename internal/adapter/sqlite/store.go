package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/vertextoedge/resumefetch/internal/port"
)

// Store implements port.Store interface using SQLite
type Store struct {
	db *sql.DB
}

// Ensure Store implements port.Store
var _ port.Store = (*Store)(nil)

// Open opens a connection to the SQLite database
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Open database with WAL mode and busy timeout
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks database connectivity
func (s *Store) Ping() error {
	return s.db.Ping()
}

// migrate creates or updates the database schema
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS downloads (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT UNIQUE NOT NULL,
			url TEXT NOT NULL,
			path TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'in_progress',
			resumed_from INTEGER NOT NULL DEFAULT 0,
			bytes_written INTEGER NOT NULL DEFAULT 0,
			total_length INTEGER NOT NULL DEFAULT -1,
			http_status INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_downloads_status ON downloads(status)`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_path ON downloads(path)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, migration)
		}
	}

	return nil
}

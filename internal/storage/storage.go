// Package storage is the persistence layer (C1): list metadata, columns
// and cells, with a transactional bulk-replace entry point for imports.
//
// It follows the teacher's internal/localdb package in spirit — a single
// sqlite file opened with the pure-Go modernc.org/sqlite driver and
// journal_mode=WAL — but replaces the teacher's generic key/value blob
// schema with real relational tables, because ReplaceData needs the
// composite-uniqueness and atomic-replace guarantees only a proper schema
// gives.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a single sqlite database used for all list/column/cell
// persistence.
type Store struct {
	db *sql.DB
}

// Open opens or creates the sqlite database file under dir and ensures
// the schema exists.
func Open(dir string) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("storage: mkdir state dir: %w", err)
	}
	path := filepath.Join(dir, "listforge.sqlite")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite: single-writer discipline, matches teacher's localdb
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return nil, fmt.Errorf("storage: enable wal: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON;`); err != nil {
		return nil, fmt.Errorf("storage: enable foreign keys: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenMemory opens an in-memory database, primarily for tests.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite memory: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys=ON;`); err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS lists (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			update_type TEXT NOT NULL,
			update_schedule TEXT NOT NULL DEFAULT '',
			update_config TEXT NOT NULL DEFAULT '{}',
			data_source_format TEXT NOT NULL DEFAULT 'json',
			max_results INTEGER NOT NULL DEFAULT 0,
			last_update TEXT,
			filter_enabled INTEGER NOT NULL DEFAULT 0,
			filter_rules TEXT NOT NULL DEFAULT '[]',
			ip_restriction_enabled INTEGER NOT NULL DEFAULT 0,
			allowed_ips TEXT NOT NULL DEFAULT '[]',
			is_active INTEGER NOT NULL DEFAULT 1,
			is_published INTEGER NOT NULL DEFAULT 0,
			json_config_status TEXT NOT NULL DEFAULT 'not_configured',
			json_data_path TEXT NOT NULL DEFAULT '',
			json_pagination_enabled INTEGER NOT NULL DEFAULT 0,
			json_next_page_path TEXT NOT NULL DEFAULT '',
			json_max_pages INTEGER NOT NULL DEFAULT 0,
			json_selected_columns TEXT NOT NULL DEFAULT '[]',
			public_csv_enabled INTEGER NOT NULL DEFAULT 0,
			public_json_enabled INTEGER NOT NULL DEFAULT 0,
			public_txt_enabled INTEGER NOT NULL DEFAULT 0,
			public_txt_column TEXT NOT NULL DEFAULT '',
			public_csv_include_headers INTEGER NOT NULL DEFAULT 1,
			public_txt_include_headers INTEGER NOT NULL DEFAULT 0,
			public_access_token TEXT
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_lists_public_token ON lists(public_access_token) WHERE public_access_token IS NOT NULL`,
		`CREATE TABLE IF NOT EXISTS columns (
			list_id INTEGER NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			position INTEGER NOT NULL,
			column_type TEXT NOT NULL,
			PRIMARY KEY (list_id, name)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_columns_position ON columns(list_id, position)`,
		`CREATE TABLE IF NOT EXISTS cells (
			list_id INTEGER NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
			row_id INTEGER NOT NULL,
			column_position INTEGER NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (list_id, row_id, column_position)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("storage: init schema: %w", err)
		}
	}
	return nil
}

// ErrNotFound is returned by Get-style lookups that find nothing.
var ErrNotFound = fmt.Errorf("storage: not found")

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 10*time.Second)
}

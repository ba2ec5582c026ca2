// Package sqlite implements the storage interfaces on a single-file SQLite
// database. It is the default backend: enrollments and attendance survive
// restarts without running a server, and the pure-Go driver keeps the
// binary cgo-free.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/kozaktomas/face-attend/internal/database"
)

// DefaultFile is the database filename created under the data directory.
const DefaultFile = "attendance.db"

func init() {
	database.Register(database.BackendSQLite, func(ctx context.Context, opts database.Options) (*database.Stores, error) {
		store, err := Open(ctx, opts.Path)
		if err != nil {
			return nil, err
		}
		return database.NewStores(
			database.BackendSQLite,
			store.Registry(),
			store.Ledger(),
			store.Close,
		), nil
	})
}

// Store owns the database handle shared by the registry and the ledger.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the attendance database, applies pragmas and creates the
// schema. A missing parent directory is created; any other failure (corrupt
// file, locked database) is reported so the caller can decide to degrade.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = DefaultFile
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Registry returns the enrollment store backed by this database.
func (s *Store) Registry() *Registry {
	return &Registry{db: s.db}
}

// Ledger returns the attendance store backed by this database.
func (s *Store) Ledger() *Ledger {
	return &Ledger{db: s.db}
}

func (s *Store) migrate(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS people (
			norm_name  TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			embedding  TEXT NOT NULL,
			model      TEXT NOT NULL,
			dim        INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS attendance (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			date TEXT NOT NULL,
			time TEXT NOT NULL,
			UNIQUE(name, date)
		)`,
		`CREATE INDEX IF NOT EXISTS attendance_date_idx ON attendance(date)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func encodeEmbedding(embedding []float32) (string, error) {
	data, err := json.Marshal(embedding)
	if err != nil {
		return "", fmt.Errorf("encode embedding: %w", err)
	}
	return string(data), nil
}

func decodeEmbedding(data string) ([]float32, error) {
	var embedding []float32
	if err := json.Unmarshal([]byte(data), &embedding); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	return embedding, nil
}

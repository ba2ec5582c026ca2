// Package postgres implements the storage interfaces on PostgreSQL with
// the pgvector extension. It suits deployments where several kiosks share
// one attendance database; the single-machine default is the sqlite
// backend.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/kozaktomas/face-attend/internal/database"
)

// DefaultEmbeddingDim is the vector column width used when the options do
// not declare one. Matches 128-dim facenet embeddings.
const DefaultEmbeddingDim = 128

func init() {
	database.Register(database.BackendPostgres, func(ctx context.Context, opts database.Options) (*database.Stores, error) {
		pool, err := NewPool(opts)
		if err != nil {
			return nil, err
		}

		dim := opts.Dim
		if dim <= 0 {
			dim = DefaultEmbeddingDim
		}
		if err := pool.Migrate(ctx, dim); err != nil {
			pool.Close()
			return nil, err
		}

		return database.NewStores(
			database.BackendPostgres,
			&Registry{pool: pool},
			&Ledger{pool: pool},
			pool.Close,
		), nil
	})
}

// Pool manages a PostgreSQL connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a connection pool and verifies the server is reachable.
func NewPool(opts database.Options) (*Pool, error) {
	if opts.URL == "" {
		return nil, errors.New("database URL is required")
	}

	db, err := sql.Open("postgres", opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// QueryRow executes a query that returns a single row.
func (p *Pool) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.db.QueryRowContext(ctx, query, args...)
}

// Query executes a query that returns rows.
func (p *Pool) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return rows, nil
}

// Exec executes a query that doesn't return rows.
func (p *Pool) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing statement: %w", err)
	}
	return result, nil
}

// Migrate creates the pgvector extension and the schema. embeddingDim fixes
// the vector column width; enrollments of another dimension are rejected by
// the database, which is the behavior we want since the matcher could never
// compare them anyway.
func (p *Pool) Migrate(ctx context.Context, embeddingDim int) error {
	if _, err := p.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createPeople := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS people (
			norm_name  VARCHAR(255) PRIMARY KEY,
			name       VARCHAR(255) NOT NULL,
			embedding  vector(%d) NOT NULL,
			model      VARCHAR(255) NOT NULL,
			dim        INTEGER NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`, embeddingDim)
	if _, err := p.Exec(ctx, createPeople); err != nil {
		return fmt.Errorf("failed to create people table: %w", err)
	}

	createAttendance := `
		CREATE TABLE IF NOT EXISTS attendance (
			id   BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			date VARCHAR(10) NOT NULL,
			time VARCHAR(8) NOT NULL,
			UNIQUE(name, date)
		)
	`
	if _, err := p.Exec(ctx, createAttendance); err != nil {
		return fmt.Errorf("failed to create attendance table: %w", err)
	}

	if _, err := p.Exec(ctx, `CREATE INDEX IF NOT EXISTS attendance_date_idx ON attendance(date)`); err != nil {
		return fmt.Errorf("failed to create attendance date index: %w", err)
	}

	return nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/facematch"
)

// Registry is the SQLite-backed enrollment store.
type Registry struct {
	db *sql.DB
}

// Put stores an enrollment, replacing any existing one for the same person.
func (r *Registry) Put(ctx context.Context, enrollment database.Enrollment) error {
	embedding, err := encodeEmbedding(enrollment.Embedding)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO people (norm_name, name, embedding, model, dim, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(norm_name) DO UPDATE SET
			name       = excluded.name,
			embedding  = excluded.embedding,
			model      = excluded.model,
			dim        = excluded.dim,
			created_at = excluded.created_at`,
		facematch.NormalizeName(enrollment.Name),
		enrollment.Name,
		embedding,
		enrollment.Model,
		enrollment.Dim,
		enrollment.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("put enrollment: %w", err)
	}
	return nil
}

// Get retrieves an enrollment by person name, returns nil if not found.
func (r *Registry) Get(ctx context.Context, name string) (*database.Enrollment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT name, embedding, model, dim, created_at
		FROM people WHERE norm_name = ?`,
		facematch.NormalizeName(name),
	)

	enrollment, err := scanEnrollment(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	return enrollment, nil
}

// All returns every enrollment ordered by normalized name.
func (r *Registry) All(ctx context.Context) ([]database.Enrollment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, embedding, model, dim, created_at
		FROM people ORDER BY norm_name`)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []database.Enrollment
	for rows.Next() {
		enrollment, err := scanEnrollment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		enrollments = append(enrollments, *enrollment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// Count returns the number of enrolled people.
func (r *Registry) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM people`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}

// RemoveAll deletes every enrollment.
func (r *Registry) RemoveAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM people`); err != nil {
		return fmt.Errorf("clear registry: %w", err)
	}
	return nil
}

func scanEnrollment(scan func(dest ...any) error) (*database.Enrollment, error) {
	var (
		enrollment database.Enrollment
		embedding  string
		createdAt  string
	)
	if err := scan(&enrollment.Name, &embedding, &enrollment.Model, &enrollment.Dim, &createdAt); err != nil {
		return nil, err
	}

	decoded, err := decodeEmbedding(embedding)
	if err != nil {
		return nil, err
	}
	enrollment.Embedding = decoded

	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	enrollment.CreatedAt = ts

	return &enrollment, nil
}

// Verify interface compliance
var _ database.RegistryWriter = (*Registry)(nil)

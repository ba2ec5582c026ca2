package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/facematch"
)

// Registry is the PostgreSQL-backed enrollment store.
type Registry struct {
	pool *Pool
}

// Put stores an enrollment, replacing any existing one for the same person.
func (r *Registry) Put(ctx context.Context, enrollment database.Enrollment) error {
	vec := pgvector.NewVector(enrollment.Embedding)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO people (norm_name, name, embedding, model, dim, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (norm_name) DO UPDATE SET
			name       = EXCLUDED.name,
			embedding  = EXCLUDED.embedding,
			model      = EXCLUDED.model,
			dim        = EXCLUDED.dim,
			created_at = EXCLUDED.created_at`,
		facematch.NormalizeName(enrollment.Name),
		enrollment.Name,
		vec,
		enrollment.Model,
		enrollment.Dim,
		enrollment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("put enrollment: %w", err)
	}
	return nil
}

// Get retrieves an enrollment by person name, returns nil if not found.
func (r *Registry) Get(ctx context.Context, name string) (*database.Enrollment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT name, embedding, model, dim, created_at
		FROM people WHERE norm_name = $1`,
		facematch.NormalizeName(name),
	)

	enrollment, err := scanEnrollment(row)
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
	rows, err := r.pool.Query(ctx, `
		SELECT name, embedding, model, dim, created_at
		FROM people ORDER BY norm_name`)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []database.Enrollment
	for rows.Next() {
		enrollment, err := scanEnrollment(rows)
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
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM people`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}

// RemoveAll deletes every enrollment.
func (r *Registry) RemoveAll(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM people`); err != nil {
		return fmt.Errorf("clear registry: %w", err)
	}
	return nil
}

func scanEnrollment(scanner interface{ Scan(...any) error }) (*database.Enrollment, error) {
	var (
		enrollment database.Enrollment
		vec        pgvector.Vector
	)
	if err := scanner.Scan(&enrollment.Name, &vec, &enrollment.Model, &enrollment.Dim, &enrollment.CreatedAt); err != nil {
		return nil, err
	}
	enrollment.Embedding = vec.Slice()
	return &enrollment, nil
}

// Verify interface compliance
var _ database.RegistryWriter = (*Registry)(nil)

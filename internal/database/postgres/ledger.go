package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/database"
)

// Ledger is the PostgreSQL-backed attendance store.
type Ledger struct {
	pool *Pool
}

// Mark records an event unless one exists for the same name and date. The
// UNIQUE(name, date) constraint with ON CONFLICT DO NOTHING keeps the
// check-and-append atomic across concurrent kiosks sharing the database.
func (l *Ledger) Mark(ctx context.Context, event database.Event) (bool, error) {
	res, err := l.pool.Exec(ctx, `
		INSERT INTO attendance (name, date, time) VALUES ($1, $2, $3)
		ON CONFLICT (name, date) DO NOTHING`,
		event.Name, event.Date, event.Time,
	)
	if err != nil {
		return false, fmt.Errorf("mark attendance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark attendance: %w", err)
	}
	return affected > 0, nil
}

// All returns every event in the order it was recorded.
func (l *Ledger) All(ctx context.Context) ([]database.Event, error) {
	return l.list(ctx, database.EventFilter{})
}

// Filter returns the events matching the filter, in recorded order. The
// date narrows the query; name matching folds case and diacritics, so it
// happens application-side with the shared filter semantics.
func (l *Ledger) Filter(ctx context.Context, filter database.EventFilter) ([]database.Event, error) {
	return l.list(ctx, filter)
}

func (l *Ledger) list(ctx context.Context, filter database.EventFilter) ([]database.Event, error) {
	stmt := `SELECT id, name, date, time FROM attendance`
	var args []any
	if filter.Date != "" {
		stmt += ` WHERE date = $1`
		args = append(args, filter.Date)
	}
	stmt += ` ORDER BY id`

	rows, err := l.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var events []database.Event
	for rows.Next() {
		var event database.Event
		if err := rows.Scan(&event.ID, &event.Name, &event.Date, &event.Time); err != nil {
			return nil, fmt.Errorf("scan attendance row: %w", err)
		}
		if filter.Matches(event) {
			events = append(events, event)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return events, nil
}

// Count returns the total number of events.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	var count int
	if err := l.pool.QueryRow(ctx, `SELECT COUNT(*) FROM attendance`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count attendance: %w", err)
	}
	return count, nil
}

// RemoveAll deletes every event.
func (l *Ledger) RemoveAll(ctx context.Context) error {
	if _, err := l.pool.Exec(ctx, `DELETE FROM attendance`); err != nil {
		return fmt.Errorf("clear attendance: %w", err)
	}
	return nil
}

var _ database.LedgerWriter = (*Ledger)(nil)

package database

import (
	"context"
)

// RegistryReader provides read-only access to enrolled people.
type RegistryReader interface {
	// Get retrieves an enrollment by person name, returns nil if not found.
	// Lookup is insensitive to case, diacritics and surrounding whitespace.
	Get(ctx context.Context, name string) (*Enrollment, error)
	// All returns every enrollment, ordered by normalized name.
	All(ctx context.Context) ([]Enrollment, error)
	// Count returns the number of enrolled people.
	Count(ctx context.Context) (int, error)
}

// RegistryWriter provides write access to enrolled people.
type RegistryWriter interface {
	RegistryReader

	// Put stores an enrollment, replacing any existing one for the same
	// person. Validation happens above the store; backends persist what
	// they are given.
	Put(ctx context.Context, enrollment Enrollment) error

	// RemoveAll deletes every enrollment. This is the only way an entry
	// disappears short of being overwritten by a re-enrollment.
	RemoveAll(ctx context.Context) error
}

// LedgerReader provides read-only access to attendance events.
type LedgerReader interface {
	// All returns every event in the order it was recorded.
	All(ctx context.Context) ([]Event, error)
	// Filter returns the events matching the filter, in recorded order.
	Filter(ctx context.Context, filter EventFilter) ([]Event, error)
	// Count returns the total number of events.
	Count(ctx context.Context) (int, error)
}

// LedgerWriter provides write access to attendance events.
type LedgerWriter interface {
	LedgerReader

	// Mark records an event unless one already exists for the same name and
	// date. The check and the append are atomic. It reports whether a new
	// row was written; false means that person already had an event for
	// that day and the stored event keeps its original time.
	Mark(ctx context.Context, event Event) (bool, error)

	// RemoveAll deletes every event.
	RemoveAll(ctx context.Context) error
}

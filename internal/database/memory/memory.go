// Package memory implements the storage interfaces with mutex-guarded
// in-process state. It backs handler tests and is the degradation target
// when a persistent backend cannot be opened: the system keeps running
// against an empty registry and ledger instead of crashing.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/facematch"
)

func init() {
	database.Register(database.BackendMemory, func(ctx context.Context, opts database.Options) (*database.Stores, error) {
		return NewStores(), nil
	})
}

// NewStores creates an empty in-memory registry and ledger pair.
func NewStores() *database.Stores {
	return database.NewStores(database.BackendMemory, NewRegistry(), NewLedger(), nil)
}

// Registry is an in-memory database.RegistryWriter keyed by normalized name.
type Registry struct {
	mu     sync.RWMutex
	people map[string]database.Enrollment
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		people: make(map[string]database.Enrollment),
	}
}

// Put stores an enrollment, replacing any existing one for the same person.
func (r *Registry) Put(ctx context.Context, enrollment database.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.people[facematch.NormalizeName(enrollment.Name)] = cloneEnrollment(enrollment)
	return nil
}

// Get retrieves an enrollment by person name, returns nil if not found.
func (r *Registry) Get(ctx context.Context, name string) (*database.Enrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	enrollment, ok := r.people[facematch.NormalizeName(name)]
	if !ok {
		return nil, nil
	}
	out := cloneEnrollment(enrollment)
	return &out, nil
}

// All returns every enrollment ordered by normalized name.
func (r *Registry) All(ctx context.Context) ([]database.Enrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.people))
	for key := range r.people {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]database.Enrollment, 0, len(keys))
	for _, key := range keys {
		out = append(out, cloneEnrollment(r.people[key]))
	}
	return out, nil
}

// Count returns the number of enrolled people.
func (r *Registry) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.people), nil
}

// RemoveAll deletes every enrollment.
func (r *Registry) RemoveAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.people = make(map[string]database.Enrollment)
	return nil
}

// Ledger is an in-memory database.LedgerWriter preserving insertion order.
type Ledger struct {
	mu     sync.Mutex
	events []database.Event
	seen   map[string]struct{}
	nextID int64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		seen: make(map[string]struct{}),
	}
}

func markKey(event database.Event) string {
	return event.Name + "\x00" + event.Date
}

// Mark records an event unless one exists for the same name and date. The
// mutex makes the check-and-append atomic for concurrent callers.
func (l *Ledger) Mark(ctx context.Context, event database.Event) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := markKey(event)
	if _, dup := l.seen[key]; dup {
		return false, nil
	}

	l.nextID++
	event.ID = l.nextID
	l.events = append(l.events, event)
	l.seen[key] = struct{}{}
	return true, nil
}

// All returns every event in the order it was recorded.
func (l *Ledger) All(ctx context.Context) ([]database.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]database.Event, len(l.events))
	copy(out, l.events)
	return out, nil
}

// Filter returns the events matching the filter, in recorded order.
func (l *Ledger) Filter(ctx context.Context, filter database.EventFilter) ([]database.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []database.Event
	for _, event := range l.events {
		if filter.Matches(event) {
			out = append(out, event)
		}
	}
	return out, nil
}

// Count returns the total number of events.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events), nil
}

// RemoveAll deletes every event.
func (l *Ledger) RemoveAll(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
	l.seen = make(map[string]struct{})
	l.nextID = 0
	return nil
}

func cloneEnrollment(e database.Enrollment) database.Enrollment {
	out := e
	out.Embedding = make([]float32, len(e.Embedding))
	copy(out.Embedding, e.Embedding)
	return out
}

// Verify interface compliance
var _ database.RegistryWriter = (*Registry)(nil)
var _ database.LedgerWriter = (*Ledger)(nil)

package database

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
)

// Backend names accepted by Open.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Options carries backend selection and connection settings for Open.
type Options struct {
	Backend      string // sqlite, postgres or memory; sqlite when empty
	Path         string // sqlite database file
	URL          string // postgres DSN
	Dim          int    // embedding column width for backends that declare it
	MaxOpenConns int
	MaxIdleConns int
}

// Stores bundles the two persistence surfaces of the system together with
// the handle needed to shut the shared backend down.
type Stores struct {
	Registry RegistryWriter
	Ledger   LedgerWriter

	// Backend names the implementation actually serving the stores. After a
	// fallback this differs from the requested one.
	Backend string

	closeFn func() error
}

// Close releases the underlying backend connection, if any.
func (s *Stores) Close() error {
	if s == nil || s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// NewStores wraps backend implementations into a Stores value. Backend
// packages call this from their open functions.
func NewStores(backend string, registry RegistryWriter, ledger LedgerWriter, closeFn func() error) *Stores {
	return &Stores{
		Registry: registry,
		Ledger:   ledger,
		Backend:  backend,
		closeFn:  closeFn,
	}
}

// OpenFunc constructs the stores of one backend.
type OpenFunc func(ctx context.Context, opts Options) (*Stores, error)

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]OpenFunc)
)

// Register makes a storage backend available to Open under the given name.
// Backend packages call this from init, so importing a backend package is
// enough to enable it. Registering the same name twice panics, mirroring
// database/sql driver registration.
func Register(name string, open OpenFunc) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if open == nil {
		panic("database: Register open func is nil")
	}
	if _, dup := backends[name]; dup {
		panic(fmt.Sprintf("database: Register called twice for backend %q", name))
	}
	backends[name] = open
}

// Backends returns the names of all registered backends, sorted.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(name string) (OpenFunc, bool) {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	open, ok := backends[name]
	return open, ok
}

// Open constructs the stores for the requested backend. A backend that
// cannot be opened (corrupt file, bad DSN, unreachable server) is not
// fatal: Open logs a warning and degrades to the in-memory backend, so
// callers see empty registry and ledger instead of a crash. Errors after a
// successful Open surface normally.
func Open(ctx context.Context, opts Options) (*Stores, error) {
	name := opts.Backend
	if name == "" {
		name = BackendSQLite
	}

	open, ok := lookup(name)
	if !ok {
		return fallback(ctx, opts, fmt.Errorf("unknown storage backend %q (registered: %v)", name, Backends()))
	}

	stores, err := open(ctx, opts)
	if err != nil {
		return fallback(ctx, opts, fmt.Errorf("open %s backend: %w", name, err))
	}
	return stores, nil
}

func fallback(ctx context.Context, opts Options, cause error) (*Stores, error) {
	if opts.Backend == BackendMemory {
		// Memory is the floor; nothing further to degrade to.
		return nil, cause
	}
	open, ok := lookup(BackendMemory)
	if !ok {
		return nil, fmt.Errorf("%w (and memory backend not registered)", cause)
	}
	log.Printf("storage unavailable: %v; continuing with an empty in-memory store", cause)
	stores, err := open(ctx, Options{Backend: BackendMemory})
	if err != nil {
		return nil, fmt.Errorf("memory fallback: %w", err)
	}
	return stores, nil
}

package database_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/face-attend/internal/database"
	_ "github.com/kozaktomas/face-attend/internal/database/memory"
	_ "github.com/kozaktomas/face-attend/internal/database/sqlite"
)

func TestOpenDefaultsToSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.db")

	stores, err := database.Open(context.Background(), database.Options{Path: path})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer stores.Close()

	if stores.Backend != database.BackendSQLite {
		t.Errorf("expected sqlite backend by default, got %q", stores.Backend)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected database file to exist: %v", err)
	}
}

func TestOpenMemoryBackend(t *testing.T) {
	stores, err := database.Open(context.Background(), database.Options{Backend: database.BackendMemory})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer stores.Close()

	if stores.Backend != database.BackendMemory {
		t.Errorf("expected memory backend, got %q", stores.Backend)
	}
}

func TestOpenCorruptSQLiteDegradesToMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.db")
	if err := os.WriteFile(path, []byte("garbage that is definitely not a database"), 0o644); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	stores, err := database.Open(context.Background(), database.Options{
		Backend: database.BackendSQLite,
		Path:    path,
	})
	if err != nil {
		t.Fatalf("Open should degrade, not fail: %v", err)
	}
	defer stores.Close()

	if stores.Backend != database.BackendMemory {
		t.Errorf("expected degradation to memory backend, got %q", stores.Backend)
	}

	// The degraded stores behave like an empty system.
	ctx := context.Background()
	count, err := stores.Registry.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("degraded registry should be empty, got %d", count)
	}
	events, err := stores.Ledger.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("degraded ledger should be empty, got %d events", len(events))
	}
}

func TestOpenUnknownBackendDegradesToMemory(t *testing.T) {
	stores, err := database.Open(context.Background(), database.Options{Backend: "rocksdb"})
	if err != nil {
		t.Fatalf("Open should degrade, not fail: %v", err)
	}
	defer stores.Close()

	if stores.Backend != database.BackendMemory {
		t.Errorf("expected degradation to memory backend, got %q", stores.Backend)
	}
}

func TestBackendsListsRegistered(t *testing.T) {
	names := database.Backends()
	want := map[string]bool{
		database.BackendSQLite: false,
		database.BackendMemory: false,
	}
	for _, name := range names {
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("backend %q not registered", name)
		}
	}
}

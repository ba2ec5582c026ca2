package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/kozaktomas/face-attend/internal/database"
)

func TestRegistry_PutGetNormalizesName(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()

	err := reg.Put(ctx, database.Enrollment{Name: "José Novák", Embedding: []float32{1, 2}})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := reg.Get(ctx, "jose novak")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected enrollment, got nil")
	}
	if got.Name != "José Novák" {
		t.Errorf("expected original spelling preserved, got %q", got.Name)
	}
}

func TestRegistry_GetMissingReturnsNil(t *testing.T) {
	reg := NewRegistry()
	got, err := reg.Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing person, got %+v", got)
	}
}

func TestRegistry_PutOverwritesSamePerson(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()

	if err := reg.Put(ctx, database.Enrollment{Name: "José", Embedding: []float32{1}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := reg.Put(ctx, database.Enrollment{Name: "Jose", Embedding: []float32{2}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	count, err := reg.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 person after overwrite, got %d", count)
	}

	got, err := reg.Get(ctx, "jose")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.Embedding[0] != 2 {
		t.Errorf("expected latest embedding to win, got %+v", got)
	}
}

func TestRegistry_GetCopiesEmbedding(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()

	if err := reg.Put(ctx, database.Enrollment{Name: "alice", Embedding: []float32{1, 2}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := reg.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	got.Embedding[0] = 99

	again, err := reg.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if again.Embedding[0] != 1 {
		t.Error("mutating a returned embedding must not affect the store")
	}
}

func TestRegistry_RemoveAll(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()

	for _, name := range []string{"alice", "bob"} {
		if err := reg.Put(ctx, database.Enrollment{Name: name, Embedding: []float32{1}}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	if err := reg.RemoveAll(ctx); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}

	count, err := reg.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty registry, got %d people", count)
	}
}

func TestLedger_MarkOncePerDay(t *testing.T) {
	led := NewLedger()
	ctx := context.Background()

	inserted, err := led.Mark(ctx, database.Event{Name: "alice", Date: "2024-03-01", Time: "09:00:00"})
	if err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if !inserted {
		t.Error("first mark should insert")
	}

	inserted, err = led.Mark(ctx, database.Event{Name: "alice", Date: "2024-03-01", Time: "17:45:00"})
	if err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if inserted {
		t.Error("second mark on the same day should not insert")
	}

	events, err := led.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Time != "09:00:00" {
		t.Errorf("first mark's time should win, got %s", events[0].Time)
	}
}

func TestLedger_DifferentDaysRecordSeparately(t *testing.T) {
	led := NewLedger()
	ctx := context.Background()

	for _, date := range []string{"2024-03-01", "2024-03-02"} {
		inserted, err := led.Mark(ctx, database.Event{Name: "alice", Date: date, Time: "09:00:00"})
		if err != nil {
			t.Fatalf("Mark failed: %v", err)
		}
		if !inserted {
			t.Errorf("mark for %s should insert", date)
		}
	}

	count, err := led.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 events, got %d", count)
	}
}

func TestLedger_AllPreservesInsertionOrder(t *testing.T) {
	led := NewLedger()
	ctx := context.Background()

	names := []string{"carol", "alice", "bob"}
	for _, name := range names {
		if _, err := led.Mark(ctx, database.Event{Name: name, Date: "2024-03-01", Time: "09:00:00"}); err != nil {
			t.Fatalf("Mark failed: %v", err)
		}
	}

	events, err := led.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	for i, name := range names {
		if events[i].Name != name {
			t.Errorf("event %d: expected %q, got %q", i, name, events[i].Name)
		}
	}
}

func TestLedger_Filter(t *testing.T) {
	led := NewLedger()
	ctx := context.Background()

	seed := []database.Event{
		{Name: "Alice Nguyen", Date: "2024-03-01", Time: "09:00:00"},
		{Name: "Bob Žák", Date: "2024-03-01", Time: "09:05:00"},
		{Name: "Alice Nguyen", Date: "2024-03-02", Time: "08:55:00"},
	}
	for _, event := range seed {
		if _, err := led.Mark(ctx, event); err != nil {
			t.Fatalf("Mark failed: %v", err)
		}
	}

	t.Run("by date", func(t *testing.T) {
		events, err := led.Filter(ctx, database.EventFilter{Date: "2024-03-01"})
		if err != nil {
			t.Fatalf("Filter failed: %v", err)
		}
		if len(events) != 2 {
			t.Errorf("expected 2 events on 2024-03-01, got %d", len(events))
		}
	})

	t.Run("by name substring case-insensitive", func(t *testing.T) {
		events, err := led.Filter(ctx, database.EventFilter{Name: "alice"})
		if err != nil {
			t.Fatalf("Filter failed: %v", err)
		}
		if len(events) != 2 {
			t.Errorf("expected 2 alice events, got %d", len(events))
		}
	})

	t.Run("by name ignoring diacritics", func(t *testing.T) {
		events, err := led.Filter(ctx, database.EventFilter{Name: "zak"})
		if err != nil {
			t.Fatalf("Filter failed: %v", err)
		}
		if len(events) != 1 {
			t.Errorf("expected 1 event for zak, got %d", len(events))
		}
	})

	t.Run("combined", func(t *testing.T) {
		events, err := led.Filter(ctx, database.EventFilter{Date: "2024-03-02", Name: "alice"})
		if err != nil {
			t.Fatalf("Filter failed: %v", err)
		}
		if len(events) != 1 {
			t.Errorf("expected 1 event, got %d", len(events))
		}
	})
}

func TestLedger_ConcurrentMarkSameDay(t *testing.T) {
	led := NewLedger()
	ctx := context.Background()

	const workers = 32
	var wg sync.WaitGroup
	insertions := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted, err := led.Mark(ctx, database.Event{Name: "alice", Date: "2024-03-01", Time: "09:00:00"})
			if err != nil {
				t.Errorf("Mark failed: %v", err)
				return
			}
			insertions <- inserted
		}()
	}
	wg.Wait()
	close(insertions)

	wins := 0
	for inserted := range insertions {
		if inserted {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly one successful insert, got %d", wins)
	}

	count, err := led.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 event after concurrent marks, got %d", count)
	}
}

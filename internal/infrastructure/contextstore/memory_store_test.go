package contextstore

import (
	"context"
	"testing"
	"time"

	"github.com/jarvishq/jarvis-server/internal/domain/convo"
)

func pendingContext(question string) *convo.Context {
	return &convo.Context{
		Pending: &convo.PendingClarification{
			Intent:   "record_expense",
			Question: question,
			Attempts: 1,
		},
		UpdatedAt: time.Now().UTC(),
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore(30 * time.Minute)
	ctx := context.Background()

	loaded, err := store.Load(ctx, "tg:1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != nil {
		t.Fatal("load on an empty store should return nil")
	}

	saved := pendingContext("Em qual categoria?")
	if err := store.Save(ctx, "tg:1", saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err = store.Load(ctx, "tg:1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil || loaded.Pending == nil || loaded.Pending.Question != "Em qual categoria?" {
		t.Fatalf("loaded = %+v, want the saved context", loaded)
	}

	if err := store.Clear(ctx, "tg:1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	loaded, _ = store.Load(ctx, "tg:1")
	if loaded != nil {
		t.Error("context still present after clear")
	}
}

func TestMemoryStore_LazyExpiry(t *testing.T) {
	store := NewMemoryStore(10 * time.Minute)
	ctx := context.Background()

	current := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	if err := store.Save(ctx, "tg:1", pendingContext("?")); err != nil {
		t.Fatalf("save: %v", err)
	}

	current = current.Add(9 * time.Minute)
	if loaded, _ := store.Load(ctx, "tg:1"); loaded == nil {
		t.Fatal("context expired before its TTL")
	}

	current = current.Add(2 * time.Minute)
	if loaded, _ := store.Load(ctx, "tg:1"); loaded != nil {
		t.Fatal("context survived past its TTL")
	}

	// The expired entry was evicted on read.
	if store.cache.Len() != 0 {
		t.Errorf("cache holds %d entries after expiry, want 0", store.cache.Len())
	}
}

func TestMemoryStore_SaveRefreshesTTL(t *testing.T) {
	store := NewMemoryStore(10 * time.Minute)
	ctx := context.Background()

	current := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	store.Save(ctx, "tg:1", pendingContext("primeira"))
	current = current.Add(8 * time.Minute)
	store.Save(ctx, "tg:1", pendingContext("segunda"))
	current = current.Add(8 * time.Minute)

	loaded, _ := store.Load(ctx, "tg:1")
	if loaded == nil || loaded.Pending.Question != "segunda" {
		t.Fatalf("loaded = %+v, want the re-saved context still alive", loaded)
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	store := NewMemoryStore(10 * time.Minute)
	ctx := context.Background()

	current := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	store.Save(ctx, "tg:1", pendingContext("a"))
	store.Save(ctx, "tg:2", pendingContext("b"))
	current = current.Add(5 * time.Minute)
	store.Save(ctx, "tg:3", pendingContext("c"))

	current = current.Add(6 * time.Minute)
	removed, err := store.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 2 {
		t.Errorf("sweep removed %d, want 2", removed)
	}

	if loaded, _ := store.Load(ctx, "tg:3"); loaded == nil {
		t.Error("live context was swept")
	}
	if store.cache.Len() != 1 {
		t.Errorf("cache holds %d entries, want 1", store.cache.Len())
	}
}

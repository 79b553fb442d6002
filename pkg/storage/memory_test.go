package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func entryAt(user string, value float64, at time.Time) Entry {
	e := NewEntry(user, "daily", `{"temp":0.5}`, value)
	e.CreatedAt = at
	return e
}

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	if store == nil {
		t.Fatal("NewMemoryStore returned nil")
	}
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d entries", store.Len())
	}
}

func TestNewEntry(t *testing.T) {
	e := NewEntry("42", "hourly", `{}`, 12.5)
	if e.ID == uuid.Nil {
		t.Error("expected a generated ID")
	}
	if e.CreatedAt.IsZero() || e.CreatedAt.Location() != time.UTC {
		t.Errorf("expected UTC timestamp, got %v", e.CreatedAt)
	}
	if e.UserID != "42" || e.Type != "hourly" || e.Value != 12.5 {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestMemoryStore_Append_Recent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 5; i++ {
		if err := store.Append(ctx, entryAt("alice", float64(i), base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	got, err := store.Recent(ctx, "alice", 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	for i, want := range []float64{4, 3, 2} {
		if got[i].Value != want {
			t.Errorf("entry %d: expected value %v, got %v", i, want, got[i].Value)
		}
	}
}

func TestMemoryStore_Recent_Empty(t *testing.T) {
	store := NewMemoryStore()

	got, err := store.Recent(context.Background(), "nobody", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no entries, got %d", len(got))
	}
}

func TestMemoryStore_Recent_LimitBounds(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < MaxRecent+20; i++ {
		if err := store.Append(ctx, entryAt("bob", float64(i), time.Now())); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	tests := []struct {
		limit int
		want  int
	}{
		{1, 1},
		{20, 20},
		{0, MaxRecent},
		{-5, MaxRecent},
		{MaxRecent * 10, MaxRecent},
	}
	for _, tt := range tests {
		got, err := store.Recent(ctx, "bob", tt.limit)
		if err != nil {
			t.Fatalf("Recent(%d): %v", tt.limit, err)
		}
		if len(got) != tt.want {
			t.Errorf("Recent(%d) returned %d entries, want %d", tt.limit, len(got), tt.want)
		}
	}
}

func TestMemoryStore_UsersIsolated(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Append(ctx, entryAt("alice", 1, time.Now()))
	store.Append(ctx, entryAt("bob", 2, time.Now()))

	got, _ := store.Recent(ctx, "alice", 10)
	if len(got) != 1 || got[0].UserID != "alice" {
		t.Errorf("alice sees %+v", got)
	}
}

func TestMemoryStore_CapsPerUser(t *testing.T) {
	store := NewMemoryStore()
	store.maxEntries = 3
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		store.Append(ctx, entryAt("carol", float64(i), time.Now()))
	}

	if store.Len() != 3 {
		t.Errorf("expected 3 entries kept, got %d", store.Len())
	}
	got, _ := store.Recent(ctx, "carol", 10)
	if got[0].Value != 9 || got[2].Value != 7 {
		t.Errorf("expected newest entries 9..7, got %v..%v", got[0].Value, got[2].Value)
	}
}

func TestMemoryStore_InvalidInput(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	tests := []struct {
		name  string
		entry Entry
	}{
		{"empty user", NewEntry("", "daily", "{}", 1)},
		{"bad user chars", NewEntry("a b", "daily", "{}", 1)},
		{"nil id", Entry{UserID: "alice"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Append(ctx, tt.entry); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := store.Recent(ctx, "", 10); err == nil {
		t.Error("expected error for empty user id")
	}
}

func TestMemoryStore_ContextCanceled(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Append(ctx, entryAt("alice", 1, time.Now())); err != context.Canceled {
		t.Errorf("Append: expected context.Canceled, got %v", err)
	}
	if _, err := store.Recent(ctx, "alice", 1); err != context.Canceled {
		t.Errorf("Recent: expected context.Canceled, got %v", err)
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", w%3)
			for i := 0; i < 50; i++ {
				if err := store.Append(ctx, entryAt(user, float64(i), time.Now())); err != nil {
					t.Errorf("Append: %v", err)
					return
				}
				if _, err := store.Recent(ctx, user, 5); err != nil {
					t.Errorf("Recent: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	if store.Len() != 500 {
		t.Errorf("expected 500 entries, got %d", store.Len())
	}
}

func TestMemoryStoreWithTTL_Expiration(t *testing.T) {
	store := NewMemoryStoreWithTTL(100*time.Millisecond, 20*time.Millisecond)
	defer store.Stop()
	ctx := context.Background()

	store.Append(ctx, entryAt("alice", 1, time.Now().Add(-time.Hour)))
	store.Append(ctx, entryAt("alice", 2, time.Now().Add(time.Hour)))
	store.Append(ctx, entryAt("bob", 3, time.Now().Add(-time.Hour)))

	time.Sleep(100 * time.Millisecond)

	got, _ := store.Recent(ctx, "alice", 10)
	if len(got) != 1 || got[0].Value != 2 {
		t.Errorf("expected only the fresh entry, got %+v", got)
	}
	if store.Len() != 1 {
		t.Errorf("expected expired logs removed entirely, %d entries left", store.Len())
	}
}

func TestMemoryStoreWithTTL_Stop(t *testing.T) {
	store := NewMemoryStoreWithTTL(time.Minute, 10*time.Millisecond)
	store.Stop()
	store.Stop()
}

func TestMemoryStore_StopWithoutTTL(t *testing.T) {
	NewMemoryStore().Stop()
}

func TestMemoryStoreWithTTL_PanicOnInvalidTTL(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for zero TTL")
		}
	}()
	NewMemoryStoreWithTTL(0, time.Second)
}

func BenchmarkMemoryStore_Append(b *testing.B) {
	store := NewMemoryStore()
	ctx := context.Background()
	e := NewEntry("bench", "daily", "{}", 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.Append(ctx, e)
	}
}

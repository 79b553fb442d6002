//go:build integration

package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgresContainer(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "ridewise",
			"POSTGRES_PASSWORD": "ridewise",
			"POSTGRES_DB":       "ridewise",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}

	return fmt.Sprintf("postgres://ridewise:ridewise@%s:%s/ridewise?sslmode=disable", host, port.Port())
}

func TestPostgresStore_Append_Recent(t *testing.T) {
	ctx := context.Background()
	store, err := NewPostgresStore(ctx, setupPostgresContainer(t))
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	defer store.Close()

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 5; i++ {
		e := NewEntry("alice", "daily", fmt.Sprintf(`{"temp": 0.%d}`, i), float64(i))
		e.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	if err := store.Append(ctx, NewEntry("bob", "hourly", "{}", 99)); err != nil {
		t.Fatalf("Append bob: %v", err)
	}

	got, err := store.Recent(ctx, "alice", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Value != 4 || got[1].Value != 3 {
		t.Errorf("expected newest first (4, 3), got (%v, %v)", got[0].Value, got[1].Value)
	}
	if !got[0].CreatedAt.Equal(base.Add(4 * time.Minute)) {
		t.Errorf("CreatedAt = %v", got[0].CreatedAt)
	}
	if got[0].UserID != "alice" || got[0].Type != "daily" {
		t.Errorf("unexpected entry: %+v", got[0])
	}
}

func TestPostgresStore_SchemaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dsn := setupPostgresContainer(t)

	for i := 0; i < 2; i++ {
		store, err := NewPostgresStore(ctx, dsn)
		if err != nil {
			t.Fatalf("NewPostgresStore attempt %d: %v", i, err)
		}
		store.Close()
	}
}

func TestPostgresStore_Recent_Empty(t *testing.T) {
	ctx := context.Background()
	store, err := NewPostgresStore(ctx, setupPostgresContainer(t))
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	defer store.Close()

	got, err := store.Recent(ctx, "nobody", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestNewPostgresStore_EmptyDSN(t *testing.T) {
	if _, err := NewPostgresStore(context.Background(), ""); err == nil {
		t.Error("expected error for empty dsn")
	}
}

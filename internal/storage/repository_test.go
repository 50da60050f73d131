package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"novoape/internal/docstore"
	"novoape/internal/docstore/storetest"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "novoape.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store { return newTestStore(t) })
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "novoape.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	p, _ := docstore.ItemPath("u1", "rooms", "r1")
	if err := s.Set(ctx, p, []byte(`{"name":"Sala"}`)); err != nil {
		t.Fatal(err)
	}
	s.Close()

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	n, err := reopened.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected data to survive reopen, got %d documents", n)
	}
	if err := reopened.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestMigrateSchemaReachesNewestVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "novoape.db")
	for i := 0; i < 2; i++ {
		version, err := MigrateSchema(path)
		if err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
		if version != SchemaVersion {
			t.Fatalf("run %d: version = %d, want %d", i+1, version, SchemaVersion)
		}
	}
}

func TestDeleteKeepsWriteStamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, _ := docstore.ItemPath("u1", "rooms", "r1")
	at := time.Date(2024, 8, 20, 9, 30, 0, 0, time.UTC)
	if err := s.Set(ctx, p, []byte(`{"name":"Sala"}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(docstore.WithWriteTime(ctx, at), p); err != nil {
		t.Fatal(err)
	}
	n, _ := s.Count(ctx)
	if n != 0 {
		t.Fatalf("count = %d after delete", n)
	}
	got, err := s.WrittenAt(ctx, p)
	if err != nil || !got.Equal(at) {
		t.Fatalf("written at = %v, err = %v", got, err)
	}
}

// Package storetest holds behaviour checks shared by every docstore adapter.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"novoape/internal/docstore"
)

// mustPath is called as mustPath(t)(docstore.ItemPath(...)).
func mustPath(t *testing.T) func(docstore.Path, error) docstore.Path {
	return func(p docstore.Path, err error) docstore.Path {
		t.Helper()
		if err != nil {
			t.Fatalf("build path: %v", err)
		}
		return p
	}
}

// Run exercises the Store contract against a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) docstore.Store) {
	ctx := context.Background()

	t.Run("set get overwrite", func(t *testing.T) {
		s := newStore(t)
		p := mustPath(t)(docstore.ItemPath("u1", "rooms", "r1"))
		if err := s.Set(ctx, p, []byte(`{"name":"Sala","squareMeters":20}`)); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := s.Set(ctx, p, []byte(`{"name":"Quarto"}`)); err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		body, err := s.Get(ctx, p)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		var got map[string]any
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatal(err)
		}
		if got["name"] != "Quarto" {
			t.Fatalf("expected overwrite, got %s", body)
		}
		if _, ok := got["squareMeters"]; ok {
			t.Fatalf("set must replace the whole document, got %s", body)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		p := mustPath(t)(docstore.ItemPath("u1", "rooms", "nope"))
		if _, err := s.Get(ctx, p); !errors.Is(err, docstore.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("merge keeps other fields", func(t *testing.T) {
		s := newStore(t)
		p := mustPath(t)(docstore.UserDoc("u1"))
		if err := s.Merge(ctx, p, []byte(`{"projectName":"Apê"}`)); err != nil {
			t.Fatalf("merge into missing: %v", err)
		}
		if err := s.Merge(ctx, p, []byte(`{"theme":"dark"}`)); err != nil {
			t.Fatalf("merge: %v", err)
		}
		if err := s.Merge(ctx, p, []byte(`{"projectName":"Casa"}`)); err != nil {
			t.Fatalf("merge: %v", err)
		}
		body, err := s.Get(ctx, p)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		var got map[string]any
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatal(err)
		}
		if got["projectName"] != "Casa" || got["theme"] != "dark" {
			t.Fatalf("unexpected merged profile %s", body)
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		p := mustPath(t)(docstore.ItemPath("u1", "purchases", "p1"))
		if err := s.Set(ctx, p, []byte(`{"store":"Leroy"}`)); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(ctx, p); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.Get(ctx, p); !errors.Is(err, docstore.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.Delete(ctx, p); err != nil {
			t.Fatalf("deleting a missing document should succeed, got %v", err)
		}
	})

	t.Run("list direct children only", func(t *testing.T) {
		s := newStore(t)
		for _, id := range []string{"b", "a"} {
			if err := s.Set(ctx, mustPath(t)(docstore.ItemPath("u1", "rooms", id)), []byte(`{"id":"`+id+`"}`)); err != nil {
				t.Fatal(err)
			}
		}
		if err := s.Set(ctx, mustPath(t)(docstore.ItemPath("u2", "rooms", "c")), []byte(`{"id":"c"}`)); err != nil {
			t.Fatal(err)
		}
		if err := s.Set(ctx, mustPath(t)(docstore.ItemPath("u1", "purchases", "d")), []byte(`{"id":"d"}`)); err != nil {
			t.Fatal(err)
		}
		if err := s.Merge(ctx, mustPath(t)(docstore.UserDoc("u1")), []byte(`{"projectName":"x"}`)); err != nil {
			t.Fatal(err)
		}

		docs, err := s.List(ctx, mustPath(t)(docstore.CollectionPath("u1", "rooms")))
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(docs) != 2 {
			t.Fatalf("expected 2 rooms, got %d", len(docs))
		}
		ids := map[string]bool{}
		for _, d := range docs {
			ids[d.ID] = true
		}
		if !ids["a"] || !ids["b"] {
			t.Fatalf("unexpected ids %v", ids)
		}

		empty, err := s.List(ctx, mustPath(t)(docstore.CollectionPath("u3", "rooms")))
		if err != nil {
			t.Fatalf("list empty: %v", err)
		}
		if len(empty) != 0 {
			t.Fatalf("expected no docs, got %d", len(empty))
		}
	})

	t.Run("rejects malformed paths", func(t *testing.T) {
		s := newStore(t)
		if err := s.Set(ctx, "users/u1/rooms", []byte(`{}`)); !errors.Is(err, docstore.ErrInvalidPath) {
			t.Fatalf("expected ErrInvalidPath for collection path, got %v", err)
		}
		if _, err := s.List(ctx, "users/u1"); !errors.Is(err, docstore.ErrInvalidPath) {
			t.Fatalf("expected ErrInvalidPath for document path, got %v", err)
		}
	})

	t.Run("write stamps", func(t *testing.T) {
		s := newStore(t)
		v, ok := s.(docstore.Versioned)
		if !ok {
			t.Skip("store keeps no write stamps")
		}
		p := mustPath(t)(docstore.ItemPath("u1", "rooms", "r1"))
		if at, err := v.WrittenAt(ctx, p); err != nil || !at.IsZero() {
			t.Fatalf("unwritten path: at = %v, err = %v", at, err)
		}

		first := time.Date(2024, 8, 20, 9, 30, 0, 123456789, time.UTC)
		if err := s.Set(docstore.WithWriteTime(ctx, first), p, []byte(`{"name":"Sala"}`)); err != nil {
			t.Fatal(err)
		}
		if at, err := v.WrittenAt(ctx, p); err != nil || !at.Equal(first) {
			t.Fatalf("after set: at = %v, err = %v", at, err)
		}

		merged := first.Add(time.Minute)
		if err := s.Merge(docstore.WithWriteTime(ctx, merged), p, []byte(`{"squareMeters":12}`)); err != nil {
			t.Fatal(err)
		}
		if at, _ := v.WrittenAt(ctx, p); !at.Equal(merged) {
			t.Fatalf("after merge: at = %v", at)
		}

		deleted := merged.Add(time.Minute)
		if err := s.Delete(docstore.WithWriteTime(ctx, deleted), p); err != nil {
			t.Fatal(err)
		}
		if at, _ := v.WrittenAt(ctx, p); !at.Equal(deleted) {
			t.Fatalf("delete must leave a stamp, at = %v", at)
		}

		before := time.Now()
		if err := s.Set(ctx, p, []byte(`{"name":"Sala"}`)); err != nil {
			t.Fatal(err)
		}
		if at, _ := v.WrittenAt(ctx, p); at.Before(before.Add(-time.Second)) {
			t.Fatalf("unstamped write should use the current time, at = %v", at)
		}
	})
}

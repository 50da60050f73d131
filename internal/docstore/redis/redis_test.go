package redis

import (
	"testing"

	goredis "github.com/redis/go-redis/v9"

	"novoape/internal/docstore"
)

func TestKeys(t *testing.T) {
	s := New(goredis.NewClient(&goredis.Options{Addr: "localhost:0"}), "")
	defer s.Close()
	p, _ := docstore.ItemPath("u1", "rooms", "r1")
	if got := s.docKey(p); got != "novoape:doc:users/u1/rooms/r1" {
		t.Fatalf("unexpected doc key %q", got)
	}
	if got := s.colKey(p.Parent()); got != "novoape:col:users/u1/rooms" {
		t.Fatalf("unexpected collection key %q", got)
	}
	if got := s.writtenKey(p); got != "novoape:written:users/u1/rooms/r1" {
		t.Fatalf("unexpected stamp key %q", got)
	}
}

func TestCustomPrefix(t *testing.T) {
	s := New(goredis.NewClient(&goredis.Options{Addr: "localhost:0"}), "test")
	defer s.Close()
	u, _ := docstore.UserDoc("u1")
	if got := s.docKey(u); got != "test:doc:users/u1" {
		t.Fatalf("unexpected key %q", got)
	}
}

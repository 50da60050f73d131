package docstore

import (
	"errors"
	"testing"
)

func TestPaths(t *testing.T) {
	p, err := ItemPath("U", "recurringCosts", "42")
	if err != nil {
		t.Fatal(err)
	}
	if p != "users/U/recurringCosts/42" {
		t.Fatalf("unexpected item path %q", p)
	}
	if !p.IsDocument() || p.ID() != "42" || p.Parent() != "users/U/recurringCosts" {
		t.Fatalf("unexpected path parts for %q", p)
	}
	u, _ := UserDoc("U")
	if u != "users/U" || !u.IsDocument() {
		t.Fatalf("unexpected user doc %q", u)
	}
	c, _ := CollectionPath("U", "rooms")
	if c.IsDocument() || c.Parent() != u {
		t.Fatalf("unexpected collection path %q", c)
	}
}

func TestJoinRejectsBadSegments(t *testing.T) {
	for _, seg := range []string{"", "a/b"} {
		if _, err := ItemPath("u", "rooms", seg); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("segment %q: expected ErrInvalidPath, got %v", seg, err)
		}
	}
}

func TestMergeBodies(t *testing.T) {
	out, err := MergeBodies([]byte(`{"a":1,"b":2}`), []byte(`{"b":3,"c":4}`))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"a":1,"b":3,"c":4}` {
		t.Fatalf("unexpected merge %s", out)
	}
	out, err = MergeBodies(nil, []byte(`{"x":true}`))
	if err != nil || string(out) != `{"x":true}` {
		t.Fatalf("merge into nil: %s %v", out, err)
	}
	if _, err := MergeBodies([]byte(`{}`), []byte(`"str"`)); err == nil {
		t.Fatal("expected error for non-object patch")
	}
}

package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	c := NewLRUCache[int](2, time.Hour, WithEvictCallback(func(k string, _ int) {
		evicted = append(evicted, k)
	}))
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a missing")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("evicted = %v", evicted)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUIdleExpiryIsRenewedByGet(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Minute, WithClock[string](clock.now))
	c.Set("k", "v")

	clock.advance(50 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired early")
	}
	clock.advance(50 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("Get should renew the deadline")
	}
	clock.advance(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatal("idle entry should expire")
	}
}

func TestCleanExpired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC)}
	var evicted int
	c := NewLRUCache[int](10, time.Minute,
		WithClock[int](clock.now),
		WithEvictCallback(func(string, int) { evicted++ }))
	c.Set("a", 1)
	c.Set("b", 2)
	clock.advance(2 * time.Minute)
	c.Set("c", 3)

	m := NewManager(nil)
	m.Register(c)
	if n := m.CleanNow(); n != 2 {
		t.Fatalf("cleaned %d, want 2", n)
	}
	if evicted != 2 || c.Size() != 1 {
		t.Fatalf("evicted %d, size %d", evicted, c.Size())
	}
	m.Stop()
}

func TestDeleteRunsCallback(t *testing.T) {
	var got string
	c := NewLRUCache[int](0, time.Hour, WithEvictCallback(func(k string, _ int) { got = k }))
	c.Set("x", 1)
	c.Delete("x")
	c.Delete("x")
	if got != "x" || c.Size() != 0 {
		t.Fatalf("callback key %q, size %d", got, c.Size())
	}
}

func TestManagerStartStop(t *testing.T) {
	m := NewManager(nil)
	m.Register(NewLRUCache[int](1, time.Millisecond))
	m.StartCleanup(time.Millisecond)
	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()
}

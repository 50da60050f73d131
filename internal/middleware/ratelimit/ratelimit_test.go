package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, limits map[Scope]int, onReject func(Scope)) (*Limiter, *time.Time) {
	t.Helper()
	now := time.Date(2024, 8, 20, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(Config{Limits: limits, OnReject: onReject})
	l.now = func() time.Time { return now }
	t.Cleanup(l.Stop)
	return l, &now
}

func TestAllowWindow(t *testing.T) {
	l, now := newTestLimiter(t, map[Scope]int{ScopeWrite: 3}, nil)

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow(ScopeWrite, "ana"); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	ok, wait := l.Allow(ScopeWrite, "ana")
	if ok || wait != time.Minute {
		t.Fatalf("fourth request: ok = %v, wait = %v", ok, wait)
	}
	if ok, _ := l.Allow(ScopeWrite, "bia"); !ok {
		t.Fatal("other users have their own window")
	}

	*now = now.Add(30 * time.Second)
	if ok, wait := l.Allow(ScopeWrite, "ana"); ok || wait != 30*time.Second {
		t.Fatalf("mid window: ok = %v, wait = %v", ok, wait)
	}

	*now = now.Add(31 * time.Second)
	if ok, _ := l.Allow(ScopeWrite, "ana"); !ok {
		t.Fatal("a new window should allow again")
	}
}

func TestScopesCountSeparately(t *testing.T) {
	l, _ := newTestLimiter(t, map[Scope]int{ScopeAuth: 1, ScopeWrite: 1}, nil)

	if ok, _ := l.Allow(ScopeAuth, "203.0.113.7"); !ok {
		t.Fatal("first sign-in should pass")
	}
	if ok, _ := l.Allow(ScopeWrite, "203.0.113.7"); !ok {
		t.Fatal("writes have their own budget")
	}
	if ok, _ := l.Allow(ScopeAuth, "203.0.113.7"); ok {
		t.Fatal("second sign-in in the window should be rejected")
	}
	for i := 0; i < 5; i++ {
		if ok, _ := l.Allow("unlisted", "k"); !ok {
			t.Fatal("a scope without a limit is never throttled")
		}
	}
}

func TestSweepForgetsIdleKeys(t *testing.T) {
	l, now := newTestLimiter(t, map[Scope]int{ScopeWrite: 3}, nil)
	l.Allow(ScopeWrite, "ana")
	*now = now.Add(11 * time.Minute)
	l.Allow(ScopeWrite, "bia")

	l.sweep()
	if got := l.Tracked(); got != 1 {
		t.Fatalf("Tracked() = %d, want 1", got)
	}
}

func TestMiddleware(t *testing.T) {
	var rejected []Scope
	l, now := newTestLimiter(t, map[Scope]int{ScopeWrite: 1}, func(s Scope) { rejected = append(rejected, s) })
	key := "ana"
	h := l.Middleware(ScopeWrite, func(r *http.Request) string { return key }, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	serve := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/rooms", nil))
		return rec
	}

	if rec := serve(); rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}
	*now = now.Add(15500 * time.Millisecond)
	rec := serve()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "45" {
		t.Errorf("Retry-After = %q, want 45", got)
	}
	if len(rejected) != 1 || rejected[0] != ScopeWrite {
		t.Errorf("rejected = %v", rejected)
	}

	key = ""
	if rec := serve(); rec.Code != http.StatusOK {
		t.Fatalf("requests without a key pass, status = %d", rec.Code)
	}
}

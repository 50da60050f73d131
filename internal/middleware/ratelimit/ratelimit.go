// Package ratelimit throttles sign-in attempts and project writes.
//
// Every scope counts requests per key in a one-minute window that opens on
// the key's first request. Sign-in is keyed by client address, writes by
// user id, so one household's edits never eat into another's budget.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Scope names an independently counted family of requests.
type Scope string

const (
	ScopeAuth  Scope = "auth"
	ScopeWrite Scope = "write"
)

const (
	window           = time.Minute
	defaultIdleAfter = 10 * time.Minute
)

type Config struct {
	// Limits caps requests per window for each scope. A scope with no
	// positive limit is never throttled.
	Limits map[Scope]int
	// IdleAfter is how long a key may go quiet before it is forgotten.
	IdleAfter time.Duration
	// OnReject runs for every rejected request.
	OnReject func(Scope)
}

type Limiter struct {
	mu        sync.Mutex
	counters  map[bucket]*counter
	limits    map[Scope]int
	idleAfter time.Duration
	onReject  func(Scope)
	now       func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	scope Scope
	key   string
}

type counter struct {
	opened time.Time
	seen   time.Time
	n      int
}

// NewLimiter starts a limiter whose idle keys are swept once per IdleAfter.
// Call Stop to end the sweep.
func NewLimiter(cfg Config) *Limiter {
	if cfg.IdleAfter <= 0 {
		cfg.IdleAfter = defaultIdleAfter
	}
	l := &Limiter{
		counters:  make(map[bucket]*counter),
		limits:    make(map[Scope]int, len(cfg.Limits)),
		idleAfter: cfg.IdleAfter,
		onReject:  cfg.OnReject,
		now:       time.Now,
		stop:      make(chan struct{}),
	}
	for scope, n := range cfg.Limits {
		if n > 0 {
			l.limits[scope] = n
		}
	}
	go l.sweepLoop()
	return l
}

// Allow counts one request of key in scope. When the window is already
// full it reports false and how long until the window reopens.
func (l *Limiter) Allow(scope Scope, key string) (bool, time.Duration) {
	limit, ok := l.limits[scope]
	if !ok {
		return true, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b := bucket{scope: scope, key: key}
	c, ok := l.counters[b]
	if !ok || now.Sub(c.opened) >= window {
		l.counters[b] = &counter{opened: now, seen: now, n: 1}
		return true, 0
	}
	c.seen = now
	if c.n >= limit {
		return false, c.opened.Add(window).Sub(now)
	}
	c.n++
	return true, 0
}

// Tracked returns the number of keys currently counted across scopes.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.idleAfter)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.idleAfter)
	for b, c := range l.counters {
		if c.seen.Before(cutoff) {
			delete(l.counters, b)
		}
	}
}

// Stop ends the sweep. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Middleware throttles scope by the key keyOf derives from the request.
// Requests with an empty key pass. A rejection sets Retry-After and is
// written by reject, or as a plain 429 when reject is nil.
func (l *Limiter) Middleware(scope Scope, keyOf func(*http.Request) string, reject http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyOf(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			ok, wait := l.Allow(scope, key)
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			if l.onReject != nil {
				l.onReject(scope)
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			if reject == nil {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			reject(w, r)
		})
	}
}

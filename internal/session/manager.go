package session

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"novoape/internal/cache"
	"novoape/internal/core"
	"novoape/internal/log"
	"novoape/internal/metrics"
)

// Manager keeps one signed-in Session per user. Sessions idle longer than
// the TTL, or pushed out by newer ones, are closed: their mutations fail
// with ErrClosed, their queued writes finish, and the next Open loads the
// user again once those writes landed.
type Manager struct {
	store    Persister
	sessions *cache.LRUCache[*Session]
	metrics  *metrics.Metrics
	logger   *log.Logger
	opts     []Option
	opening  singleflight.Group
	// draining holds closed sessions whose writes are still queued, by uid.
	draining sync.Map
}

type ManagerConfig struct {
	MaxSessions int
	TTL         time.Duration
	Metrics     *metrics.Metrics
	Logger      *log.Logger
	// SessionOptions apply to every session the manager creates.
	SessionOptions []Option
}

func NewManager(store Persister, cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default(log.ComponentSession)
	}
	m := &Manager{
		store:   store,
		metrics: cfg.Metrics,
		logger:  logger.WithComponent(log.ComponentSession),
		opts:    append([]Option{WithLogger(logger)}, cfg.SessionOptions...),
	}
	m.sessions = cache.NewLRUCache[*Session](cfg.MaxSessions, cfg.TTL,
		cache.WithEvictCallback(m.evicted))
	return m
}

// Cache exposes the session cache so a cache.Manager can sweep it.
func (m *Manager) Cache() cache.Cleaner { return m.sessions }

// Open returns the session of user, signing in a new one when none is held.
// A failed load still yields a signed-in session holding the defaults.
func (m *Manager) Open(ctx context.Context, user core.User) (*Session, error) {
	if s, ok := m.sessions.Get(user.ID); ok {
		return s, nil
	}
	if user.ID == "" {
		return nil, ErrNoUser
	}
	v, err, _ := m.opening.Do(user.ID, func() (any, error) {
		if s, ok := m.sessions.Get(user.ID); ok {
			return s, nil
		}
		if old, ok := m.draining.Load(user.ID); ok {
			old.(*Session).Wait()
		}
		s := New(m.store, m.opts...)
		err := s.SignIn(ctx, user)
		m.sessions.Set(user.ID, s)
		m.metrics.SetActiveSessions(m.sessions.Size())
		return s, err
	})
	return v.(*Session), err
}

// Lookup returns the held session of uid without loading.
func (m *Manager) Lookup(uid string) (*Session, bool) {
	return m.sessions.Get(uid)
}

// Close waits for the user's queued writes, then closes the session and
// forgets it. A later Open reads those writes back.
func (m *Manager) Close(uid string) {
	if s, ok := m.sessions.Get(uid); ok {
		s.Wait()
	}
	m.sessions.Delete(uid)
}

// Size reports the number of held sessions.
func (m *Manager) Size() int { return m.sessions.Size() }

// Wait blocks until every held or closing session has flushed its queued
// writes.
func (m *Manager) Wait() {
	m.sessions.Range(func(_ string, s *Session) bool {
		s.Wait()
		return true
	})
	m.draining.Range(func(_, s any) bool {
		s.(*Session).Wait()
		return true
	})
}

func (m *Manager) evicted(uid string, s *Session) {
	m.metrics.SetActiveSessions(m.sessions.Size())
	s.close()
	m.draining.Store(uid, s)
	go func() {
		s.Wait()
		m.draining.CompareAndDelete(uid, s)
		s.SignOut()
		m.logger.Debug("Session closed", log.FieldUserID, uid)
	}()
}

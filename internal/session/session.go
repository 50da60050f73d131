// Package session holds the in-memory state of one user's project.
//
// A Session is the single source of truth for its project. Every mutation
// validates its input, applies to local state under the write lock and then,
// when a user is signed in, queues the matching document write. Writes run
// in the order they were queued and their failures never undo local state.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"novoape/internal/core"
	"novoape/internal/log"
	"novoape/internal/persist"
)

var (
	// ErrNoUser is returned by SignIn for an identity without an id.
	ErrNoUser = errors.New("user id is required")
	// ErrClosed is returned by mutations on a session its Manager dropped.
	// Open the user's session again to continue.
	ErrClosed = errors.New("session closed")
)

// Persister is the part of the document store adapter a session writes
// through.
type Persister interface {
	Save(ctx context.Context, uid, collection string, item persist.Record) persist.Outcome
	Delete(ctx context.Context, uid, collection, id string) persist.Outcome
	SaveProjectName(ctx context.Context, uid, name string) persist.Outcome
	SaveChecklistSection(ctx context.Context, uid string, section core.ChecklistSection) persist.Outcome
	Load(ctx context.Context, uid string) (*persist.Loaded, error)
}

type Session struct {
	mu     sync.RWMutex
	user   *core.User
	state  core.Snapshot
	closed bool

	store  Persister
	writes writeQueue
	logger *log.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Session)

func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l.WithComponent(log.ComponentSession) }
}

// WithClock overrides the time source used for default dates.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithIDGenerator overrides the id source for new records.
func WithIDGenerator(gen func() string) Option {
	return func(s *Session) { s.newID = gen }
}

// newRecordID returns a time-ordered v7 uuid. Stores list documents by id,
// so id order is creation order after a reload.
func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// New returns an anonymous session holding the default project.
func New(store Persister, opts ...Option) *Session {
	s := &Session{
		state:  core.DefaultSnapshot(),
		store:  store,
		logger: log.Default(log.ComponentSession),
		now:    time.Now,
		newID:  newRecordID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// User returns the signed-in user, if any.
func (s *Session) User() (core.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return core.User{}, false
	}
	return *s.user, true
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() core.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Summary returns the derived totals of the current state.
func (s *Session) Summary() core.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Summarize()
}

// SignIn makes user the session owner and replaces local state with what
// the store holds for them. Collections the user never wrote come back
// empty; the checklist and project name keep their defaults instead. When
// the load fails the session still signs in, holding the defaults, and the
// load error is returned.
func (s *Session) SignIn(ctx context.Context, user core.User) error {
	if user.ID == "" {
		return ErrNoUser
	}
	s.mu.Lock()
	u := user
	s.user = &u
	methods := s.state.PaymentMethods
	s.mu.Unlock()

	loaded, err := s.store.Load(ctx, user.ID)

	next := core.DefaultSnapshot()
	next.PaymentMethods = methods
	if err == nil && loaded != nil {
		next.InitialCosts = nonNil(loaded.InitialCosts)
		next.Rooms = nonNil(loaded.Rooms)
		next.Purchases = nonNil(loaded.Purchases)
		next.RecurringCosts = nonNil(loaded.RecurringCosts)
		if len(loaded.Checklist) > 0 {
			next.Checklist = loaded.Checklist
		}
		if loaded.ProjectName != "" {
			next.ProjectName = loaded.ProjectName
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.user.ID != user.ID {
		// signed out or replaced while loading
		return err
	}
	s.state = next
	if err != nil {
		s.logger.WarnContext(ctx, "Signed in with default data",
			log.FieldUserID, user.ID,
			log.FieldError, err.Error())
		return err
	}
	s.logger.InfoContext(ctx, "Signed in", log.FieldUserID, user.ID)
	return nil
}

// SignOut forgets the user and resets the project to its defaults. It never
// touches the store; queued writes still complete.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user != nil {
		s.logger.Info("Signed out", log.FieldUserID, s.user.ID)
	}
	s.user = nil
	s.state = core.DefaultSnapshot()
}

// close makes every later mutation fail with ErrClosed. Reads and queued
// writes are unaffected.
func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// lock takes the write lock for a mutation. On success the caller must
// unlock.
func (s *Session) lock() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	return nil
}

// Wait blocks until every queued write has completed.
func (s *Session) Wait() { s.writes.wait() }

// persistLocked queues a write for the signed-in user. It must be called
// with the write lock held so writes are queued in mutation order.
func (s *Session) persistLocked(ctx context.Context, write func(ctx context.Context, uid string) persist.Outcome) {
	if s.user == nil {
		return
	}
	uid := s.user.ID
	ctx = context.WithoutCancel(ctx)
	logger := s.logger
	s.writes.push(func() {
		if o := write(ctx, uid); o.Failed() {
			logger.DebugContext(ctx, "Local state kept after failed write",
				log.FieldDocPath, o.Path.String())
		}
	})
}

func (s *Session) today() core.Date { return core.DateOf(s.now()) }

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

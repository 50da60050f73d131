// Package persist mirrors a project's records into the per-user document store.
//
// Every write reports an Outcome. Failures are logged and counted here and
// forwarded to an optional OutcomeSink; they never reach the caller as an
// error and never roll back local state.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"novoape/internal/core"
	"novoape/internal/docstore"
	"novoape/internal/log"
	"novoape/internal/metrics"
)

// DefaultTimeout bounds a single store call.
const DefaultTimeout = 10 * time.Second

// Record is any top-level document: initial costs, rooms, purchases,
// recurring costs and checklist sections.
type Record interface {
	Key() string
}

type Adapter struct {
	store   docstore.Store
	logger  *log.Logger
	events  *log.StructuredLogger
	metrics *metrics.Metrics
	sink    OutcomeSink
	timeout time.Duration
	now     func() time.Time
}

type Option func(*Adapter)

func WithLogger(l *log.Logger) Option {
	return func(a *Adapter) { a.logger = l.WithComponent(log.ComponentPersist) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// WithSink forwards failed writes to sink.
func WithSink(sink OutcomeSink) Option {
	return func(a *Adapter) { a.sink = sink }
}

func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func New(store docstore.Store, opts ...Option) *Adapter {
	a := &Adapter{
		store:   store,
		logger:  log.Default(log.ComponentPersist),
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.events = log.NewStructuredLogger(a.logger)
	return a
}

// Store returns the underlying document store.
func (a *Adapter) Store() docstore.Store { return a.store }

// Save upserts item at users/{uid}/{collection}/{item.Key()}, overwriting
// any previous version.
func (a *Adapter) Save(ctx context.Context, uid, collection string, item Record) Outcome {
	o := Outcome{Op: OpSave, UserID: uid, Collection: collection, At: a.now()}
	path, err := docstore.ItemPath(uid, collection, item.Key())
	if err != nil {
		return a.finish(ctx, o, err)
	}
	o.Path = path
	body, err := json.Marshal(item)
	if err != nil {
		return a.finish(ctx, o, fmt.Errorf("encode %s: %w", collection, err))
	}
	o.Body = body
	return a.finish(ctx, o, a.call(ctx, func(ctx context.Context) error {
		return a.store.Set(ctx, path, body)
	}))
}

// Delete removes users/{uid}/{collection}/{id}.
func (a *Adapter) Delete(ctx context.Context, uid, collection, id string) Outcome {
	o := Outcome{Op: OpDelete, UserID: uid, Collection: collection, At: a.now()}
	path, err := docstore.ItemPath(uid, collection, id)
	if err != nil {
		return a.finish(ctx, o, err)
	}
	o.Path = path
	return a.finish(ctx, o, a.call(ctx, func(ctx context.Context) error {
		return a.store.Delete(ctx, path)
	}))
}

// SaveProjectName merges {projectName} into users/{uid}, leaving other
// profile fields untouched.
func (a *Adapter) SaveProjectName(ctx context.Context, uid, name string) Outcome {
	o := Outcome{Op: OpMerge, UserID: uid, At: a.now()}
	path, err := docstore.UserDoc(uid)
	if err != nil {
		return a.finish(ctx, o, err)
	}
	o.Path = path
	body, err := json.Marshal(core.Profile{ProjectName: name})
	if err != nil {
		return a.finish(ctx, o, fmt.Errorf("encode profile: %w", err))
	}
	o.Body = body
	return a.finish(ctx, o, a.call(ctx, func(ctx context.Context) error {
		return a.store.Merge(ctx, path, body)
	}))
}

// SaveChecklistSection writes the whole section, all items included, as
// users/{uid}/checklist/{section.ID}. The section is the unit of checklist
// persistence.
func (a *Adapter) SaveChecklistSection(ctx context.Context, uid string, section core.ChecklistSection) Outcome {
	return a.Save(ctx, uid, core.CollectionChecklist, section)
}

func (a *Adapter) call(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return fn(ctx)
}

func (a *Adapter) finish(ctx context.Context, o Outcome, err error) Outcome {
	o.Err = err
	collection := o.Collection
	if collection == "" {
		collection = "profile"
	}
	a.metrics.ObserveStore(collection, string(o.Op), err)
	if err == nil {
		a.logger.DebugContext(ctx, "Document written",
			log.FieldOperation, string(o.Op),
			log.FieldDocPath, o.Path.String())
		return o
	}
	a.events.LogStoreFailure(ctx, string(o.Op), o.UserID, o.Collection, o.Path.String(), err)
	if a.sink != nil {
		if serr := a.sink.Report(ctx, o); serr != nil {
			a.metrics.IncOutcomeDropped()
			a.logger.WarnContext(ctx, "Failed to report failed write",
				log.FieldDocPath, o.Path.String(),
				log.FieldError, serr.Error())
		}
	}
	return o
}

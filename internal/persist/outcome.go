package persist

import (
	"context"
	"time"

	"novoape/internal/docstore"
)

// Op names a document store write.
type Op string

const (
	OpSave   Op = "save"
	OpMerge  Op = "merge"
	OpDelete Op = "delete"
)

// Outcome is the result of one write. Callers that do not care may ignore
// it; local state is never rolled back on failure.
type Outcome struct {
	Op         Op
	UserID     string
	Collection string
	Path       docstore.Path
	Body       []byte
	Err        error
	At         time.Time
}

// Failed reports whether the write did not reach the store.
func (o Outcome) Failed() bool { return o.Err != nil }

// OutcomeSink receives every failed write, e.g. to queue it for replay.
type OutcomeSink interface {
	Report(ctx context.Context, o Outcome) error
}

// SinkFunc adapts a function to OutcomeSink.
type SinkFunc func(ctx context.Context, o Outcome) error

func (f SinkFunc) Report(ctx context.Context, o Outcome) error { return f(ctx, o) }

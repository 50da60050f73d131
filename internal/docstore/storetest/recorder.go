package storetest

import (
	"context"
	"errors"
	"sync"
	"time"

	"novoape/internal/docstore"
	"novoape/internal/docstore/memory"
)

// ErrInjected is returned by a Recorder told to fail.
var ErrInjected = errors.New("injected store failure")

// Call is one operation seen by a Recorder.
type Call struct {
	Op   string
	Path docstore.Path
	Body []byte
}

// Recorder wraps a store and records every call. Reads and writes can be
// failed independently.
type Recorder struct {
	docstore.Store

	mu         sync.Mutex
	calls      []Call
	failWrites bool
	failReads  bool
}

// NewRecorder wraps a fresh in-memory store.
func NewRecorder() *Recorder {
	return &Recorder{Store: memory.New()}
}

func (r *Recorder) FailWrites(fail bool) {
	r.mu.Lock()
	r.failWrites = fail
	r.mu.Unlock()
}

func (r *Recorder) FailReads(fail bool) {
	r.mu.Lock()
	r.failReads = fail
	r.mu.Unlock()
}

// Calls returns a copy of the recorded calls in arrival order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Writes returns the recorded set, merge and delete calls.
func (r *Recorder) Writes() []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Op != "get" && c.Op != "list" {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

func (r *Recorder) record(op string, path docstore.Path, body []byte, write bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: op, Path: path, Body: append([]byte(nil), body...)})
	if (write && r.failWrites) || (!write && r.failReads) {
		return ErrInjected
	}
	return nil
}

func (r *Recorder) Set(ctx context.Context, path docstore.Path, body []byte) error {
	if err := r.record("set", path, body, true); err != nil {
		return err
	}
	return r.Store.Set(ctx, path, body)
}

func (r *Recorder) Merge(ctx context.Context, path docstore.Path, body []byte) error {
	if err := r.record("merge", path, body, true); err != nil {
		return err
	}
	return r.Store.Merge(ctx, path, body)
}

func (r *Recorder) Delete(ctx context.Context, path docstore.Path) error {
	if err := r.record("delete", path, nil, true); err != nil {
		return err
	}
	return r.Store.Delete(ctx, path)
}

func (r *Recorder) Get(ctx context.Context, path docstore.Path) ([]byte, error) {
	if err := r.record("get", path, nil, false); err != nil {
		return nil, err
	}
	return r.Store.Get(ctx, path)
}

// WrittenAt forwards to the wrapped store, reporting no stamp when it keeps
// none. It is not recorded as a call.
func (r *Recorder) WrittenAt(ctx context.Context, path docstore.Path) (time.Time, error) {
	v, ok := r.Store.(docstore.Versioned)
	if !ok {
		return time.Time{}, nil
	}
	r.mu.Lock()
	fail := r.failReads
	r.mu.Unlock()
	if fail {
		return time.Time{}, ErrInjected
	}
	return v.WrittenAt(ctx, path)
}

func (r *Recorder) List(ctx context.Context, collection docstore.Path) ([]docstore.Doc, error) {
	if err := r.record("list", collection, nil, false); err != nil {
		return nil, err
	}
	return r.Store.List(ctx, collection)
}

// Package memory is an in-process document store for tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"novoape/internal/docstore"
)

type Store struct {
	mu      sync.RWMutex
	docs    map[docstore.Path][]byte
	written map[docstore.Path]time.Time
}

func New() *Store {
	return &Store{docs: map[docstore.Path][]byte{}, written: map[docstore.Path]time.Time{}}
}

func (s *Store) Set(ctx context.Context, path docstore.Path, body []byte) error {
	if err := path.Validate(true); err != nil {
		return err
	}
	if err := docstore.ValidBody(body); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = append([]byte(nil), body...)
	s.written[path] = docstore.WriteTime(ctx)
	return nil
}

func (s *Store) Merge(ctx context.Context, path docstore.Path, body []byte) error {
	if err := path.Validate(true); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	merged, err := docstore.MergeBodies(s.docs[path], body)
	if err != nil {
		return err
	}
	s.docs[path] = merged
	s.written[path] = docstore.WriteTime(ctx)
	return nil
}

// Delete keeps the write stamp of the removed document.
func (s *Store) Delete(ctx context.Context, path docstore.Path) error {
	if err := path.Validate(true); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, path)
	s.written[path] = docstore.WriteTime(ctx)
	return nil
}

func (s *Store) WrittenAt(_ context.Context, path docstore.Path) (time.Time, error) {
	if err := path.Validate(true); err != nil {
		return time.Time{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.written[path], nil
}

func (s *Store) Get(_ context.Context, path docstore.Path) ([]byte, error) {
	if err := path.Validate(true); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.docs[path]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return append([]byte(nil), body...), nil
}

// List returns children ordered by id.
func (s *Store) List(_ context.Context, collection docstore.Path) ([]docstore.Doc, error) {
	if err := collection.Validate(false); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []docstore.Doc
	for p, body := range s.docs {
		if p.Parent() == collection {
			out = append(out, docstore.Doc{ID: p.ID(), Body: append([]byte(nil), body...)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Package firestore adapts Cloud Firestore to the docstore ports.
//
// Document paths map one to one onto Firestore paths, so a project written
// by this adapter is laid out as users/{uid}/{collection}/{id}.
package firestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"novoape/internal/docstore"
)

type Config struct {
	ProjectID       string
	CredentialsFile string
}

type Store struct {
	client *firestore.Client
}

// NewFromConfig opens a client. With no credentials file the default
// application credentials (or FIRESTORE_EMULATOR_HOST) are used.
func NewFromConfig(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore project id is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) doc(path docstore.Path) (*firestore.DocumentRef, error) {
	if err := path.Validate(true); err != nil {
		return nil, err
	}
	ref := s.client.Doc(path.String())
	if ref == nil {
		return nil, fmt.Errorf("%w: %q", docstore.ErrInvalidPath, path)
	}
	return ref, nil
}

func (s *Store) Set(ctx context.Context, path docstore.Path, body []byte) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}
	data, err := decodeBody(body)
	if err != nil {
		return err
	}
	if _, err := ref.Set(ctx, data); err != nil {
		return fmt.Errorf("firestore set %s: %w", path, err)
	}
	return nil
}

func (s *Store) Merge(ctx context.Context, path docstore.Path, body []byte) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}
	data, err := decodeBody(body)
	if err != nil {
		return err
	}
	if _, err := ref.Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("firestore merge %s: %w", path, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, path docstore.Path) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("firestore delete %s: %w", path, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, path docstore.Path) ([]byte, error) {
	ref, err := s.doc(path)
	if err != nil {
		return nil, err
	}
	snap, err := ref.Get(ctx)
	if snap != nil && !snap.Exists() {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("firestore get %s: %w", path, err)
	}
	return encodeData(snap.Data())
}

func (s *Store) List(ctx context.Context, collection docstore.Path) ([]docstore.Doc, error) {
	if err := collection.Validate(false); err != nil {
		return nil, err
	}
	col := s.client.Collection(collection.String())
	if col == nil {
		return nil, fmt.Errorf("%w: %q", docstore.ErrInvalidPath, collection)
	}
	iter := col.Documents(ctx)
	defer iter.Stop()

	var out []docstore.Doc
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore list %s: %w", collection, err)
		}
		body, err := encodeData(snap.Data())
		if err != nil {
			return nil, err
		}
		out = append(out, docstore.Doc{ID: snap.Ref.ID, Body: body})
	}
	return out, nil
}

// decodeBody turns a JSON object into Firestore values, keeping integers as
// int64 so cents round-trip exactly.
func decodeBody(body []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("document body must be a JSON object: %w", err)
	}
	if raw == nil {
		return nil, errors.New("document body must be a JSON object")
	}
	return normalize(raw).(map[string]interface{}), nil
}

func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]interface{}:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case []interface{}:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return v
	}
}

func encodeData(data map[string]interface{}) ([]byte, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode firestore document: %w", err)
	}
	return b, nil
}

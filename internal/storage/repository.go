package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"novoape/internal/docstore"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps every document in one table keyed by path.
type SQLiteStore struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent fire-and-forget writes
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := MigrateSchema(dbPath)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Debug("Document schema ready", "db_path", dbPath, "version", version)

	return &SQLiteStore{db: db, queries: New(db)}, nil
}

func (r *SQLiteStore) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports database reachability for readiness checks.
func (r *SQLiteStore) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteStore) Set(ctx context.Context, path docstore.Path, body []byte) error {
	if err := path.Validate(true); err != nil {
		return err
	}
	if err := docstore.ValidBody(body); err != nil {
		return err
	}
	err := r.inTx(ctx, func(q *Queries) error {
		if err := q.UpsertDocument(ctx, upsertParams(path, body)); err != nil {
			return fmt.Errorf("upsert document %s: %w", path, err)
		}
		return stamp(ctx, q, path)
	})
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "Document saved to SQLite", "doc_path", path.String())
	return nil
}

// Merge reads, overlays and writes inside one transaction.
func (r *SQLiteStore) Merge(ctx context.Context, path docstore.Path, body []byte) error {
	if err := path.Validate(true); err != nil {
		return err
	}
	return r.inTx(ctx, func(q *Queries) error {
		existing, err := q.GetDocument(ctx, path.String())
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read document %s: %w", path, err)
		}
		merged, err := docstore.MergeBodies([]byte(existing), body)
		if err != nil {
			return err
		}
		if err := q.UpsertDocument(ctx, upsertParams(path, merged)); err != nil {
			return fmt.Errorf("upsert document %s: %w", path, err)
		}
		return stamp(ctx, q, path)
	})
}

func (r *SQLiteStore) Delete(ctx context.Context, path docstore.Path) error {
	if err := path.Validate(true); err != nil {
		return err
	}
	return r.inTx(ctx, func(q *Queries) error {
		if err := q.DeleteDocument(ctx, path.String()); err != nil {
			return fmt.Errorf("delete document %s: %w", path, err)
		}
		return stamp(ctx, q, path)
	})
}

// WrittenAt reads the stamp left by the last write or delete at path.
func (r *SQLiteStore) WrittenAt(ctx context.Context, path docstore.Path) (time.Time, error) {
	if err := path.Validate(true); err != nil {
		return time.Time{}, err
	}
	ns, err := r.queries.GetWriteStamp(ctx, path.String())
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read write stamp %s: %w", path, err)
	}
	return time.Unix(0, ns).UTC(), nil
}

func (r *SQLiteStore) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := fn(r.queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func stamp(ctx context.Context, q *Queries, path docstore.Path) error {
	if err := q.UpsertWriteStamp(ctx, path.String(), docstore.WriteTime(ctx).UnixNano()); err != nil {
		return fmt.Errorf("stamp document %s: %w", path, err)
	}
	return nil
}

func (r *SQLiteStore) Get(ctx context.Context, path docstore.Path) ([]byte, error) {
	if err := path.Validate(true); err != nil {
		return nil, err
	}
	body, err := r.queries.GetDocument(ctx, path.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", path, err)
	}
	return []byte(body), nil
}

func (r *SQLiteStore) List(ctx context.Context, collection docstore.Path) ([]docstore.Doc, error) {
	if err := collection.Validate(false); err != nil {
		return nil, err
	}
	rows, err := r.queries.ListDocuments(ctx, collection.String())
	if err != nil {
		return nil, fmt.Errorf("list documents %s: %w", collection, err)
	}
	out := make([]docstore.Doc, 0, len(rows))
	for _, row := range rows {
		out = append(out, docstore.Doc{ID: row.DocID, Body: []byte(row.Body)})
	}
	return out, nil
}

// Count returns the number of stored documents.
func (r *SQLiteStore) Count(ctx context.Context) (int64, error) {
	return r.queries.CountDocuments(ctx)
}

func upsertParams(path docstore.Path, body []byte) UpsertDocumentParams {
	return UpsertDocumentParams{
		Path:   path.String(),
		Parent: path.Parent().String(),
		DocID:  path.ID(),
		Body:   string(body),
	}
}

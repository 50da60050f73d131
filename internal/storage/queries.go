package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Document struct {
	Path   string
	Parent string
	DocID  string
	Body   string
}

const upsertDocument = `
INSERT INTO documents (path, parent, doc_id, body, updated_at)
VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (path) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP
`

type UpsertDocumentParams struct {
	Path   string
	Parent string
	DocID  string
	Body   string
}

func (q *Queries) UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error {
	_, err := q.db.ExecContext(ctx, upsertDocument, arg.Path, arg.Parent, arg.DocID, arg.Body)
	return err
}

const getDocument = `SELECT body FROM documents WHERE path = ?`

func (q *Queries) GetDocument(ctx context.Context, path string) (string, error) {
	row := q.db.QueryRowContext(ctx, getDocument, path)
	var body string
	err := row.Scan(&body)
	return body, err
}

const deleteDocument = `DELETE FROM documents WHERE path = ?`

func (q *Queries) DeleteDocument(ctx context.Context, path string) error {
	_, err := q.db.ExecContext(ctx, deleteDocument, path)
	return err
}

const listDocuments = `SELECT path, parent, doc_id, body FROM documents WHERE parent = ? ORDER BY doc_id`

func (q *Queries) ListDocuments(ctx context.Context, parent string) ([]Document, error) {
	rows, err := q.db.QueryContext(ctx, listDocuments, parent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Document
	for rows.Next() {
		var i Document
		if err := rows.Scan(&i.Path, &i.Parent, &i.DocID, &i.Body); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// written_at is unix nanoseconds; rows outlive the document they stamp.
const upsertWriteStamp = `
INSERT INTO document_writes (path, written_at) VALUES (?, ?)
ON CONFLICT (path) DO UPDATE SET written_at = excluded.written_at
`

func (q *Queries) UpsertWriteStamp(ctx context.Context, path string, writtenAt int64) error {
	_, err := q.db.ExecContext(ctx, upsertWriteStamp, path, writtenAt)
	return err
}

const getWriteStamp = `SELECT written_at FROM document_writes WHERE path = ?`

func (q *Queries) GetWriteStamp(ctx context.Context, path string) (int64, error) {
	row := q.db.QueryRowContext(ctx, getWriteStamp, path)
	var writtenAt int64
	err := row.Scan(&writtenAt)
	return writtenAt, err
}

const countDocuments = `SELECT COUNT(*) FROM documents`

func (q *Queries) CountDocuments(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countDocuments)
	var n int64
	err := row.Scan(&n)
	return n, err
}

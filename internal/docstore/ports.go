// Package docstore defines the per-user document store port and its paths.
//
// Documents are JSON objects addressed by slash-separated paths:
// users/{uid} for the profile and users/{uid}/{collection}/{id} for items.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidPath = errors.New("invalid document path")
)

// Root collection holding one document per user.
const UsersCollection = "users"

// Path is a slash-joined document or collection path.
type Path string

// Join builds a path from non-empty segments that contain no slash.
func Join(segments ...string) (Path, error) {
	for _, s := range segments {
		if s == "" || strings.Contains(s, "/") {
			return "", fmt.Errorf("%w: segment %q", ErrInvalidPath, s)
		}
	}
	return Path(strings.Join(segments, "/")), nil
}

// UserDoc is the profile document path users/{uid}.
func UserDoc(uid string) (Path, error) {
	return Join(UsersCollection, uid)
}

// CollectionPath is users/{uid}/{collection}.
func CollectionPath(uid, collection string) (Path, error) {
	return Join(UsersCollection, uid, collection)
}

// ItemPath is users/{uid}/{collection}/{id}.
func ItemPath(uid, collection, id string) (Path, error) {
	return Join(UsersCollection, uid, collection, id)
}

func (p Path) String() string { return string(p) }

// Segments splits the path.
func (p Path) Segments() []string { return strings.Split(string(p), "/") }

// IsDocument reports whether p has an even number of segments.
func (p Path) IsDocument() bool { return len(p.Segments())%2 == 0 }

// Parent returns the collection containing a document, or the document
// containing a collection.
func (p Path) Parent() Path {
	i := strings.LastIndex(string(p), "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}

// ID returns the last segment.
func (p Path) ID() string {
	segs := p.Segments()
	return segs[len(segs)-1]
}

// Validate checks p is well formed and addresses a document when doc is
// true, or a collection when doc is false.
func (p Path) Validate(doc bool) error {
	if p == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	for _, s := range p.Segments() {
		if s == "" {
			return fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	if p.IsDocument() != doc {
		kind := "collection"
		if doc {
			kind = "document"
		}
		return fmt.Errorf("%w: %q is not a %s path", ErrInvalidPath, p, kind)
	}
	return nil
}

// Doc is one document returned by List.
type Doc struct {
	ID   string
	Body []byte
}

// Ports for outbound adapters.
type (
	// Writer upserts, merges and deletes documents.
	Writer interface {
		// Set overwrites the document at path with body.
		Set(ctx context.Context, path Path, body []byte) error
		// Merge writes the top-level fields of body into the document at
		// path, creating it when missing and keeping fields not in body.
		Merge(ctx context.Context, path Path, body []byte) error
		// Delete removes the document. Deleting a missing document succeeds.
		Delete(ctx context.Context, path Path) error
	}

	Reader interface {
		// Get returns the document body or ErrNotFound.
		Get(ctx context.Context, path Path) ([]byte, error)
		// List returns every direct child document of a collection.
		List(ctx context.Context, collection Path) ([]Doc, error)
	}

	Store interface {
		Writer
		Reader
	}

	// Versioned is implemented by stores that remember when each path was
	// last written or deleted. Writes are stamped with WriteTime(ctx).
	Versioned interface {
		// WrittenAt returns the stamp of the last write or delete at path,
		// or the zero time when there was none.
		WrittenAt(ctx context.Context, path Path) (time.Time, error)
	}
)

type writeTimeKey struct{}

// WithWriteTime makes versioned stores stamp writes issued with ctx at t
// instead of the current time.
func WithWriteTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, writeTimeKey{}, t)
}

// WriteTime returns the stamp for a write issued with ctx.
func WriteTime(ctx context.Context) time.Time {
	if t, ok := ctx.Value(writeTimeKey{}).(time.Time); ok && !t.IsZero() {
		return t.UTC()
	}
	return time.Now().UTC()
}

//go:build integration

package firestore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"novoape/internal/docstore"
	"novoape/internal/docstore/storetest"
)

// Run against the emulator:
//
//	FIRESTORE_EMULATOR_HOST=localhost:8080 FIRESTORE_PROJECT_ID=demo-novoape \
//	  go test -tags=integration ./internal/docstore/firestore
func TestFirestoreStoreContract(t *testing.T) {
	projectID := os.Getenv("FIRESTORE_PROJECT_ID")
	if projectID == "" || os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_PROJECT_ID and FIRESTORE_EMULATOR_HOST required")
	}
	storetest.Run(t, func(t *testing.T) docstore.Store {
		s, err := NewFromConfig(context.Background(), Config{ProjectID: projectID})
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return &prefixed{Store: s, ns: uuid.NewString()}
	})
}

// prefixed isolates each subtest by rewriting user ids, since the emulator
// database is shared across runs.
type prefixed struct {
	*Store
	ns string
}

func (p *prefixed) rewrite(path docstore.Path) docstore.Path {
	segs := path.Segments()
	if len(segs) >= 2 && segs[0] == docstore.UsersCollection {
		segs[1] = p.ns + "-" + segs[1]
	}
	out, err := docstore.Join(segs...)
	if err != nil {
		return path
	}
	return out
}

func (p *prefixed) Set(ctx context.Context, path docstore.Path, body []byte) error {
	return p.Store.Set(ctx, p.rewrite(path), body)
}

func (p *prefixed) Merge(ctx context.Context, path docstore.Path, body []byte) error {
	return p.Store.Merge(ctx, p.rewrite(path), body)
}

func (p *prefixed) Delete(ctx context.Context, path docstore.Path) error {
	return p.Store.Delete(ctx, p.rewrite(path))
}

func (p *prefixed) Get(ctx context.Context, path docstore.Path) ([]byte, error) {
	return p.Store.Get(ctx, p.rewrite(path))
}

func (p *prefixed) List(ctx context.Context, collection docstore.Path) ([]docstore.Doc, error) {
	return p.Store.List(ctx, p.rewrite(collection))
}

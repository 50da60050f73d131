//go:build integration

package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"novoape/internal/docstore"
	"novoape/internal/docstore/storetest"
)

// Run with: REDIS_URL=redis://localhost:6379/15 go test -tags=integration ./internal/docstore/redis
func TestRedisStoreContract(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	storetest.Run(t, func(t *testing.T) docstore.Store {
		client, err := Connect(context.Background(), url)
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
		s := New(client, "novoape-test-"+uuid.NewString())
		t.Cleanup(func() { s.Close() })
		return s
	})
}

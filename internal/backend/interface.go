package backend

import (
	"context"

	"novoape/internal/docstore"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// PingFunc reports whether the store is reachable.
type PingFunc func(ctx context.Context) error

// BackendResult contains the store, its readiness probe and optional cleanup.
// Ping and Cleanup are never nil.
type BackendResult struct {
	Store   docstore.Store
	Ping    PingFunc
	Cleanup CleanupFunc
}

// Factory creates document stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Redis specific
	RedisURL    string
	RedisPrefix string

	// Firestore specific
	FirestoreProjectID       string
	FirestoreCredentialsFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend    BackendType = "memory"
	SQLiteBackend    BackendType = "sqlite"
	RedisBackend     BackendType = "redis"
	FirestoreBackend BackendType = "firestore"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, RedisBackend, FirestoreBackend:
		return true
	default:
		return false
	}
}

package backend

import (
	"context"

	"ciclo/internal/core"
)

// SnapshotStore is the persistence contract: write the whole aggregate
// after each mutation, read it back verbatim at startup.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, accountID string, state core.State) error
	LoadSnapshot(ctx context.Context, accountID string) (core.State, bool, error)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the store instance and optional cleanup function
type Result struct {
	Store   SnapshotStore
	Cleanup CleanupFunc
}

// Type represents the kind of snapshot store
type Type string

const (
	SQLiteBackend   Type = "sqlite"
	JSONFileBackend Type = "jsonfile"
	MemoryBackend   Type = "memory"
)

// IsValid checks whether the backend type is known.
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, JSONFileBackend, MemoryBackend:
		return true
	}
	return false
}

// Config holds configuration for store creation
type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath string

	// JSON file specific
	SnapshotPath string
}

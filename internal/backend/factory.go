package backend

import (
	"fmt"

	"ciclo/internal/storage"
)

// NewSnapshotStore creates a snapshot store based on the provided configuration
func NewSnapshotStore(cfg Config) (*Result, error) {
	switch cfg.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create sqlite store: %w", err)
		}
		return &Result{
			Store:   repo,
			Cleanup: repo.Close,
		}, nil

	case JSONFileBackend:
		store, err := NewJSONFileStore(cfg.SnapshotPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create jsonfile store: %w", err)
		}
		return &Result{
			Store:   store,
			Cleanup: func() error { return nil },
		}, nil

	case MemoryBackend:
		return &Result{
			Store:   NewMemoryStore(),
			Cleanup: func() error { return nil },
		}, nil

	default:
		return nil, fmt.Errorf("unknown state backend: %s", cfg.Type)
	}
}

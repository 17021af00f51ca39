package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"ciclo/internal/core"
)

// JSONFileStore persists one snapshot file per account next to the
// configured base path: "./data/ciclo.json" becomes
// "./data/ciclo.default.json" for the "default" account.
type JSONFileStore struct {
	mu       sync.Mutex
	basePath string
}

func NewJSONFileStore(basePath string) (*JSONFileStore, error) {
	dir := filepath.Dir(basePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &JSONFileStore{basePath: basePath}, nil
}

func (s *JSONFileStore) pathFor(accountID string) string {
	ext := filepath.Ext(s.basePath)
	trimmed := strings.TrimSuffix(s.basePath, ext)
	if ext == "" {
		ext = ".json"
	}
	return fmt.Sprintf("%s.%s%s", trimmed, accountID, ext)
}

func (s *JSONFileStore) SaveSnapshot(ctx context.Context, accountID string, state core.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	path := s.pathFor(accountID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

func (s *JSONFileStore) LoadSnapshot(ctx context.Context, accountID string) (core.State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.pathFor(accountID))
	if os.IsNotExist(err) {
		return core.State{}, false, nil
	}
	if err != nil {
		return core.State{}, false, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var state core.State
	if err := json.Unmarshal(data, &state); err != nil {
		return core.State{}, false, fmt.Errorf("%w: %v", core.ErrCorruptSnapshot, err)
	}
	return state, true, nil
}

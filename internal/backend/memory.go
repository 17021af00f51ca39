package backend

import (
	"context"
	"sync"

	"ciclo/internal/core"
)

// MemoryStore keeps snapshots in process memory. Useful for tests and
// for running the server without any persistence configured.
type MemoryStore struct {
	mu        sync.Mutex
	snapshots map[string]core.State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]core.State)}
}

func (s *MemoryStore) SaveSnapshot(ctx context.Context, accountID string, state core.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[accountID] = state
	return nil
}

func (s *MemoryStore) LoadSnapshot(ctx context.Context, accountID string) (core.State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.snapshots[accountID]
	if !ok {
		return core.State{}, false, nil
	}
	return state, true, nil
}

package memory

import (
	"context"
	"fmt"
	"sync"

	"ciclo/internal/core"
)

// Store is an in-memory cycle exporter used in tests and when no
// spreadsheet is configured.
type Store struct {
	mu    sync.Mutex
	items []core.Cycle
}

func New() *Store {
	return &Store{}
}

// Append stores the cycle and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, c core.Cycle) (string, error) {
	if c.Status != core.CycleClosed {
		return "", fmt.Errorf("cycle %s is not closed", c.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, c)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Exported returns a copy of the appended cycles.
func (s *Store) Exported() []core.Cycle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Cycle(nil), s.items...)
}

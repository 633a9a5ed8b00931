package feedback

import (
	"context"
	"sync"
)

// InMemoryStore implements Store with a mutex-guarded slice, newest last.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Feedback
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Create(_ context.Context, f Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, f)
	return nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, tenantID string, limit int) ([]Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Feedback, 0, limit)
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if s.entries[i].TenantID == tenantID {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}

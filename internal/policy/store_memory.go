package policy

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore implements Store with a mutex-guarded map.
type InMemoryStore struct {
	mu       sync.RWMutex
	policies map[string]Policy
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{policies: make(map[string]Policy)}
}

func (s *InMemoryStore) GetByTenant(_ context.Context, tenantID string) (Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.policies[tenantID]; ok {
		return p, nil
	}
	return Default(tenantID), nil
}

func (s *InMemoryStore) Upsert(_ context.Context, p Policy) (Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.UpdatedAt = time.Now()
	s.policies[p.TenantID] = p
	return p, nil
}

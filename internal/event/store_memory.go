package event

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"pageguard/pkg/sentinel"
)

// InMemoryStore implements Store with a mutex-guarded map. Used in tests and
// for development runs without a database.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string]*Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string]*Event)}
}

func (s *InMemoryStore) Create(_ context.Context, tenantID string, kind Kind, pageURL string, payload []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	e := &Event{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Kind:      kind,
		PageURL:   pageURL,
		Payload:   append([]byte(nil), payload...),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.events[e.ID] = e
	return e.ID, nil
}

func (s *InMemoryStore) AttachVerdict(_ context.Context, eventID string, v Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("attach verdict %s: %w", eventID, sentinel.ErrNotFound)
	}
	verdict := v
	e.Verdict = &verdict
	// Never move an acknowledged event backward.
	if e.Status != StatusAcknowledged {
		e.Status = StatusCompleted
	}
	e.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) Acknowledge(_ context.Context, tenantID, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok || e.TenantID != tenantID {
		return fmt.Errorf("acknowledge %s: %w", eventID, sentinel.ErrNotFound)
	}
	switch e.Status {
	case StatusAcknowledged:
		return nil
	case StatusCompleted:
		e.Status = StatusAcknowledged
		e.UpdatedAt = time.Now()
		return nil
	default:
		return fmt.Errorf("acknowledge %s from %s: %w", eventID, e.Status, sentinel.ErrInvalidState)
	}
}

func (s *InMemoryStore) LinkReceipt(_ context.Context, eventID string, r Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("link receipt %s: %w", eventID, sentinel.ErrNotFound)
	}
	if e.Status == StatusPending {
		return fmt.Errorf("link receipt %s while pending: %w", eventID, sentinel.ErrInvalidState)
	}
	receipt := r
	e.Receipt = &receipt
	e.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, tenantID, eventID string) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[eventID]
	if !ok || e.TenantID != tenantID {
		return nil, fmt.Errorf("event %s: %w", eventID, sentinel.ErrNotFound)
	}
	copied := *e
	return &copied, nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, tenantID string, limit, offset int) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*Event
	for _, e := range s.events {
		if e.TenantID == tenantID {
			copied := *e
			all = append(all, &copied)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// Count reports the number of stored events across all tenants. Test helper
// for verifying suppressed submissions never reach the store.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

package consent

import (
	"context"
	"sync"
	"time"

	"medgate/internal/storage"
	"medgate/pkg/domain"
)

// InMemoryStore keeps grants in memory for tests and local development.
type InMemoryStore struct {
	mu     sync.RWMutex
	grants map[string]*Grant
}

// NewInMemoryStore creates an empty in-memory consent store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{grants: make(map[string]*Grant)}
}

func (s *InMemoryStore) Insert(_ context.Context, grant *Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := *grant
	s.grants[g.ID] = &g
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id string) (*Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grants[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *g
	return &copied, nil
}

func (s *InMemoryStore) FindLatest(_ context.Context, patientID string, purpose domain.Purpose) (*Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *Grant
	for _, g := range s.grants {
		if g.PatientID != patientID || g.Purpose != purpose {
			continue
		}
		if latest == nil || supersedes(g, latest) {
			latest = g
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

// supersedes orders grants the way FindLatest must: active before inactive,
// then newest first.
func supersedes(a, b *Grant) bool {
	if a.Active != b.Active {
		return a.Active
	}
	return a.GrantedAt.After(b.GrantedAt)
}

func (s *InMemoryStore) Withdraw(_ context.Context, id string, withdrawnAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[id]
	if !ok {
		return storage.ErrNotFound
	}
	at := withdrawnAt
	g.WithdrawnAt = &at
	g.Active = false
	return nil
}

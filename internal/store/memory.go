package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"hushbox/internal/domain"
)

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

// MemoryStore is a mutex-guarded in-memory store for tests and
// single-node deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]*domain.Secret
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: make(map[string]*domain.Secret)}
}

func (m *MemoryStore) Insert(ctx context.Context, s *domain.Secret) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	m.secrets[s.ID] = &cp
	return nil
}

func (m *MemoryStore) FetchByID(ctx context.Context, id string) (*domain.Secret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.secrets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) MarkViewed(ctx context.Context, id string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.secrets[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if s.Viewed {
		return false, nil
	}
	s.Viewed = true
	s.UpdatedAt = now
	return true, nil
}

func (m *MemoryStore) Update(ctx context.Context, s *domain.Secret) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.secrets[s.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *s
	m.secrets[s.ID] = &cp
	return nil
}

func (m *MemoryStore) DeleteByID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.secrets, id)
	return nil
}

func (m *MemoryStore) DeleteDead(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.secrets {
		if s.Dead(now) {
			delete(m.secrets, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) ListByOwner(ctx context.Context, owner string) ([]*domain.Secret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.Secret
	for _, s := range m.secrets {
		if s.Owner == owner && owner != "" {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.secrets = nil
	return nil
}

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"stamprally/internal/booth/models"
	"stamprally/pkg/platform/sentinel"
)

// InMemory keeps booths in a mutex-guarded map. It backs unit tests and
// single-process deployments; the Postgres store is the production path.
type InMemory struct {
	mu     sync.RWMutex
	booths map[uuid.UUID]*models.Booth
}

// NewInMemory creates an empty in-memory booth store.
func NewInMemory() *InMemory {
	return &InMemory{booths: make(map[uuid.UUID]*models.Booth)}
}

// CreateIfCodeAvailable inserts the booth unless another booth already holds
// its code. Codes are compared exactly, active or not.
func (s *InMemory) CreateIfCodeAvailable(ctx context.Context, b *models.Booth) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.booths {
		if existing.Code == b.Code {
			return sentinel.ErrAlreadyUsed
		}
	}
	cp := *b
	s.booths[b.ID] = &cp
	return nil
}

// FindByID returns the booth regardless of active state.
func (s *InMemory) FindByID(ctx context.Context, id uuid.UUID) (*models.Booth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.booths[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

// FindByCode returns the booth regardless of active state. Admin lookups only.
func (s *InMemory) FindByCode(ctx context.Context, code string) (*models.Booth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.booths {
		if b.Code == code {
			cp := *b
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// FindActiveByCode is the scan-path lookup: a deactivated booth is
// indistinguishable from a missing one.
func (s *InMemory) FindActiveByCode(ctx context.Context, code string) (*models.Booth, error) {
	b, err := s.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !b.Active {
		return nil, sentinel.ErrNotFound
	}
	return b, nil
}

// ListActive returns active booths ordered by code ascending.
func (s *InMemory) ListActive(ctx context.Context) ([]*models.Booth, error) {
	return s.list(func(b *models.Booth) bool { return b.Active }), nil
}

// ListAll returns every booth, active or not, ordered by code ascending.
func (s *InMemory) ListAll(ctx context.Context) ([]*models.Booth, error) {
	return s.list(func(*models.Booth) bool { return true }), nil
}

func (s *InMemory) list(keep func(*models.Booth) bool) []*models.Booth {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Booth, 0, len(s.booths))
	for _, b := range s.booths {
		if keep(b) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Update persists booth changes, rejecting a code that collides with a
// different booth.
func (s *InMemory) Update(ctx context.Context, b *models.Booth) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.booths[b.ID]; !ok {
		return sentinel.ErrNotFound
	}
	for id, existing := range s.booths {
		if id != b.ID && existing.Code == b.Code {
			return sentinel.ErrAlreadyUsed
		}
	}
	cp := *b
	s.booths[b.ID] = &cp
	return nil
}

// Delete removes the booth row entirely. Callers must have verified the booth
// has no recorded visits.
func (s *InMemory) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.booths[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.booths, id)
	return nil
}

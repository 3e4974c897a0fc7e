package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"stamprally/internal/participant/models"
	"stamprally/pkg/platform/sentinel"
)

// InMemory keeps participants in a mutex-guarded map.
type InMemory struct {
	mu           sync.RWMutex
	participants map[uuid.UUID]*models.Participant
}

// NewInMemory creates an empty in-memory participant store.
func NewInMemory() *InMemory {
	return &InMemory{participants: make(map[uuid.UUID]*models.Participant)}
}

// Create inserts a new participant.
func (s *InMemory) Create(ctx context.Context, p *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.participants[p.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	cp := clone(p)
	s.participants[p.ID] = cp
	return nil
}

// FindByID returns the participant or sentinel.ErrNotFound.
func (s *InMemory) FindByID(ctx context.Context, id uuid.UUID) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.participants[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(p), nil
}

// Update persists the completion transition. An already-set completion
// timestamp is kept, mirroring the COALESCE guard in the Postgres store:
// an evaluator that lost the race must not move it.
func (s *InMemory) Update(ctx context.Context, p *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.participants[p.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	cp := clone(p)
	if existing.CompletedAt != nil {
		cp.Completed = true
		t := *existing.CompletedAt
		cp.CompletedAt = &t
	}
	s.participants[p.ID] = cp
	return nil
}

// Count returns the total number of participants.
func (s *InMemory) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.participants), nil
}

// CountCompleted returns how many participants have finished the mission.
func (s *InMemory) CountCompleted(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, p := range s.participants {
		if p.Completed {
			n++
		}
	}
	return n, nil
}

// ListCompleted returns completed participants ordered by completion time
// ascending (first finisher first).
func (s *InMemory) ListCompleted(ctx context.Context) ([]*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Participant, 0)
	for _, p := range s.participants {
		if p.Completed {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].CompletedAt, out[j].CompletedAt
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		default:
			return ti.Before(*tj)
		}
	})
	return out, nil
}

// CountCreatedBetween counts participants created in [from, to).
func (s *InMemory) CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, p := range s.participants {
		if !p.CreatedAt.Before(from) && p.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func clone(p *models.Participant) *models.Participant {
	cp := *p
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

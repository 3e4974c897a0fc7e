package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"stamprally/internal/visit/models"
	"stamprally/pkg/platform/sentinel"
)

type pairKey struct {
	participantID uuid.UUID
	boothID       uuid.UUID
}

// InMemory keeps the visit ledger in mutex-guarded maps. The pair index gives
// the same at-most-once guarantee the Postgres unique constraint provides:
// the insert and the existence check happen under one lock.
type InMemory struct {
	mu     sync.RWMutex
	visits map[uuid.UUID]*models.Visit
	pairs  map[pairKey]uuid.UUID
}

// NewInMemory creates an empty in-memory visit store.
func NewInMemory() *InMemory {
	return &InMemory{
		visits: make(map[uuid.UUID]*models.Visit),
		pairs:  make(map[pairKey]uuid.UUID),
	}
}

// Create appends a visit, failing with sentinel.ErrAlreadyUsed if the
// participant already holds a stamp for the booth.
func (s *InMemory) Create(ctx context.Context, v *models.Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{v.ParticipantID, v.BoothID}
	if _, ok := s.pairs[key]; ok {
		return sentinel.ErrAlreadyUsed
	}
	cp := *v
	s.visits[v.ID] = &cp
	s.pairs[key] = v.ID
	return nil
}

// Exists reports whether the participant already visited the booth.
func (s *InMemory) Exists(ctx context.Context, participantID, boothID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.pairs[pairKey{participantID, boothID}]
	return ok, nil
}

// CountByParticipant returns the participant's stamp count.
func (s *InMemory) CountByParticipant(ctx context.Context, participantID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, v := range s.visits {
		if v.ParticipantID == participantID {
			n++
		}
	}
	return n, nil
}

// ListByParticipant returns the participant's visits ordered by stamp time
// ascending.
func (s *InMemory) ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]*models.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Visit, 0)
	for _, v := range s.visits {
		if v.ParticipantID == participantID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StampedAt.Before(out[j].StampedAt) })
	return out, nil
}

// VisitedBoothIDs returns the set of booths the participant has stamped.
func (s *InMemory) VisitedBoothIDs(ctx context.Context, participantID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[uuid.UUID]struct{})
	for key := range s.pairs {
		if key.participantID == participantID {
			out[key.boothID] = struct{}{}
		}
	}
	return out, nil
}

// ParticipantIDsWithAtLeast returns the participants holding at least
// minCount stamps.
func (s *InMemory) ParticipantIDsWithAtLeast(ctx context.Context, minCount int) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[uuid.UUID]int)
	for key := range s.pairs {
		counts[key.participantID]++
	}
	out := make([]uuid.UUID, 0)
	for id, n := range counts {
		if n >= minCount {
			out = append(out, id)
		}
	}
	return out, nil
}

// CountByBooth returns how many participants have stamped the booth.
func (s *InMemory) CountByBooth(ctx context.Context, boothID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for key := range s.pairs {
		if key.boothID == boothID {
			n++
		}
	}
	return n, nil
}

// Count returns the total number of visits recorded.
func (s *InMemory) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.visits), nil
}

// CountStampedBetween counts visits stamped in [from, to).
func (s *InMemory) CountStampedBetween(ctx context.Context, from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, v := range s.visits {
		if !v.StampedAt.Before(from) && v.StampedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

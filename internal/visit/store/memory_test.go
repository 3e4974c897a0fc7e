package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"stamprally/internal/visit/models"
	"stamprally/pkg/platform/sentinel"
)

type InMemoryVisitStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemoryVisitStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryVisitStoreSuite))
}

func (s *InMemoryVisitStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func newVisit(participantID, boothID uuid.UUID, stampedAt time.Time) *models.Visit {
	return &models.Visit{
		ID:            uuid.New(),
		ParticipantID: participantID,
		BoothID:       boothID,
		StampedAt:     stampedAt,
	}
}

func (s *InMemoryVisitStoreSuite) TestCreateRejectsDuplicatePair() {
	participant := uuid.New()
	booth := uuid.New()

	s.Require().NoError(s.store.Create(s.ctx, newVisit(participant, booth, time.Now())))
	s.ErrorIs(s.store.Create(s.ctx, newVisit(participant, booth, time.Now())), sentinel.ErrAlreadyUsed)

	// Same booth, different participant is fine.
	s.NoError(s.store.Create(s.ctx, newVisit(uuid.New(), booth, time.Now())))
	// Same participant, different booth is fine.
	s.NoError(s.store.Create(s.ctx, newVisit(participant, uuid.New(), time.Now())))
}

func (s *InMemoryVisitStoreSuite) TestConcurrentSamePair() {
	participant := uuid.New()
	booth := uuid.New()
	const goroutines = 50

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(s.ctx, newVisit(participant, booth, time.Now()))
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrAlreadyUsed) {
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load())

	count, err := s.store.CountByParticipant(s.ctx, participant)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *InMemoryVisitStoreSuite) TestExists() {
	participant := uuid.New()
	booth := uuid.New()

	ok, err := s.store.Exists(s.ctx, participant, booth)
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.store.Create(s.ctx, newVisit(participant, booth, time.Now())))

	ok, err = s.store.Exists(s.ctx, participant, booth)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *InMemoryVisitStoreSuite) TestListByParticipantOrdering() {
	participant := uuid.New()
	base := time.Now()

	second := newVisit(participant, uuid.New(), base.Add(2*time.Minute))
	first := newVisit(participant, uuid.New(), base.Add(1*time.Minute))
	third := newVisit(participant, uuid.New(), base.Add(3*time.Minute))
	for _, v := range []*models.Visit{second, first, third} {
		s.Require().NoError(s.store.Create(s.ctx, v))
	}
	s.Require().NoError(s.store.Create(s.ctx, newVisit(uuid.New(), uuid.New(), base)))

	visits, err := s.store.ListByParticipant(s.ctx, participant)
	s.Require().NoError(err)
	s.Require().Len(visits, 3)
	s.Equal(first.ID, visits[0].ID)
	s.Equal(second.ID, visits[1].ID)
	s.Equal(third.ID, visits[2].ID)
}

func (s *InMemoryVisitStoreSuite) TestVisitedBoothIDs() {
	participant := uuid.New()
	boothA := uuid.New()
	boothB := uuid.New()

	s.Require().NoError(s.store.Create(s.ctx, newVisit(participant, boothA, time.Now())))
	s.Require().NoError(s.store.Create(s.ctx, newVisit(participant, boothB, time.Now())))
	s.Require().NoError(s.store.Create(s.ctx, newVisit(uuid.New(), uuid.New(), time.Now())))

	ids, err := s.store.VisitedBoothIDs(s.ctx, participant)
	s.Require().NoError(err)
	s.Len(ids, 2)
	s.Contains(ids, boothA)
	s.Contains(ids, boothB)
}

func (s *InMemoryVisitStoreSuite) TestParticipantIDsWithAtLeast() {
	rich := uuid.New()
	poor := uuid.New()

	for range 3 {
		s.Require().NoError(s.store.Create(s.ctx, newVisit(rich, uuid.New(), time.Now())))
	}
	s.Require().NoError(s.store.Create(s.ctx, newVisit(poor, uuid.New(), time.Now())))

	ids, err := s.store.ParticipantIDsWithAtLeast(s.ctx, 3)
	s.Require().NoError(err)
	s.Require().Len(ids, 1)
	s.Equal(rich, ids[0])

	ids, err = s.store.ParticipantIDsWithAtLeast(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(ids, 2)

	ids, err = s.store.ParticipantIDsWithAtLeast(s.ctx, 4)
	s.Require().NoError(err)
	s.Empty(ids)
}

func (s *InMemoryVisitStoreSuite) TestCounts() {
	booth := uuid.New()
	s.Require().NoError(s.store.Create(s.ctx, newVisit(uuid.New(), booth, time.Now())))
	s.Require().NoError(s.store.Create(s.ctx, newVisit(uuid.New(), booth, time.Now())))
	s.Require().NoError(s.store.Create(s.ctx, newVisit(uuid.New(), uuid.New(), time.Now())))

	byBooth, err := s.store.CountByBooth(s.ctx, booth)
	s.Require().NoError(err)
	s.Equal(2, byBooth)

	total, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, total)
}

func (s *InMemoryVisitStoreSuite) TestCountStampedBetween() {
	base := time.Date(2025, 10, 4, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.Create(s.ctx, newVisit(uuid.New(), uuid.New(), base.Add(-90*time.Minute))))
	s.Require().NoError(s.store.Create(s.ctx, newVisit(uuid.New(), uuid.New(), base.Add(-60*time.Minute))))
	s.Require().NoError(s.store.Create(s.ctx, newVisit(uuid.New(), uuid.New(), base.Add(-10*time.Minute))))

	// [from, to): the visit exactly at from counts, one at to does not.
	n, err := s.store.CountStampedBetween(s.ctx, base.Add(-60*time.Minute), base)
	s.Require().NoError(err)
	s.Equal(2, n)
}

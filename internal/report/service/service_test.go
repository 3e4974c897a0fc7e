package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	boothmodels "stamprally/internal/booth/models"
	boothstore "stamprally/internal/booth/store"
	participantmodels "stamprally/internal/participant/models"
	participantstore "stamprally/internal/participant/store"
	"stamprally/internal/report/service"
	visitmodels "stamprally/internal/visit/models"
	visitstore "stamprally/internal/visit/store"
	dErrors "stamprally/pkg/domain-errors"
)

type ReportServiceSuite struct {
	suite.Suite
	booths       *boothstore.InMemory
	participants *participantstore.InMemory
	visits       *visitstore.InMemory
	svc          *service.Service
	ctx          context.Context
	now          time.Time
}

func TestReportServiceSuite(t *testing.T) {
	suite.Run(t, new(ReportServiceSuite))
}

func (s *ReportServiceSuite) SetupTest() {
	s.booths = boothstore.NewInMemory()
	s.participants = participantstore.NewInMemory()
	s.visits = visitstore.NewInMemory()
	s.now = time.Date(2025, 10, 4, 15, 0, 0, 0, time.UTC)
	s.svc = service.New(s.participants, s.visits, s.booths,
		service.WithClock(func() time.Time { return s.now }),
	)
	s.ctx = context.Background()
}

func (s *ReportServiceSuite) addBooth(code string) *boothmodels.Booth {
	b, err := boothmodels.NewBooth(code, "Booth "+code, "", true, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.booths.CreateIfCodeAvailable(s.ctx, b))
	return b
}

func (s *ReportServiceSuite) addParticipant(createdAt time.Time) *participantmodels.Participant {
	p := participantmodels.NewParticipant(createdAt)
	s.Require().NoError(s.participants.Create(s.ctx, p))
	return p
}

func (s *ReportServiceSuite) stamp(p *participantmodels.Participant, b *boothmodels.Booth, at time.Time) {
	s.Require().NoError(s.visits.Create(s.ctx, &visitmodels.Visit{
		ID:            uuid.New(),
		ParticipantID: p.ID,
		BoothID:       b.ID,
		StampedAt:     at,
	}))
}

func (s *ReportServiceSuite) complete(p *participantmodels.Participant, at time.Time) {
	s.Require().True(p.EvaluateCompletion(participantmodels.CompletionThreshold, at))
	s.Require().NoError(s.participants.Update(s.ctx, p))
}

func (s *ReportServiceSuite) TestStatisticsSummary() {
	boothA := s.addBooth("BOOTH001")
	boothB := s.addBooth("BOOTH002")

	p1 := s.addParticipant(s.now.Add(-2 * time.Hour))
	p2 := s.addParticipant(s.now.Add(-time.Hour))
	s.addParticipant(s.now.Add(-30 * time.Minute))

	s.stamp(p1, boothA, s.now.Add(-90*time.Minute))
	s.stamp(p2, boothA, s.now.Add(-50*time.Minute))
	s.stamp(p2, boothB, s.now.Add(-40*time.Minute))
	s.complete(p1, s.now.Add(-time.Hour))

	stats, err := s.svc.Statistics(s.ctx)
	s.Require().NoError(err)

	s.Equal(3, stats.Summary.TotalParticipants)
	s.Equal(1, stats.Summary.CompletedParticipants)
	s.Equal(1, stats.Summary.GiftEligibleCount)
	s.InDelta(33.3, stats.Summary.CompletionRate, 0.001)
}

func (s *ReportServiceSuite) TestStatisticsBoothRanking() {
	quiet := s.addBooth("BOOTH001")
	busy := s.addBooth("BOOTH002")

	for range 3 {
		p := s.addParticipant(s.now)
		s.stamp(p, busy, s.now)
	}
	p := s.addParticipant(s.now)
	s.stamp(p, quiet, s.now)

	stats, err := s.svc.Statistics(s.ctx)
	s.Require().NoError(err)

	s.Require().Len(stats.BoothStatistics, 2)
	s.Equal("BOOTH002", stats.BoothStatistics[0].BoothCode)
	s.Equal(3, stats.BoothStatistics[0].ParticipantCount)
	s.Equal(1, stats.BoothStatistics[0].PopularityRank)
	s.Equal("BOOTH001", stats.BoothStatistics[1].BoothCode)
	s.Equal(2, stats.BoothStatistics[1].PopularityRank)
}

func (s *ReportServiceSuite) TestStatisticsHourly() {
	b := s.addBooth("BOOTH001")

	p := s.addParticipant(s.now.Add(-30 * time.Minute))
	s.stamp(p, b, s.now.Add(-20*time.Minute))
	s.addParticipant(s.now.Add(-25 * time.Hour)) // outside the window

	stats, err := s.svc.Statistics(s.ctx)
	s.Require().NoError(err)

	s.Require().Len(stats.HourlyStatistics, 24)

	last := stats.HourlyStatistics[23]
	s.Equal(1, last.NewParticipants)
	s.Equal(1, last.StampsCollected)

	totalNew := 0
	for _, h := range stats.HourlyStatistics {
		totalNew += h.NewParticipants
	}
	s.Equal(1, totalNew, "participant created 25h ago is outside every bucket")
}

func (s *ReportServiceSuite) TestStatisticsEmpty() {
	stats, err := s.svc.Statistics(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, stats.Summary.TotalParticipants)
	s.Equal(0.0, stats.Summary.CompletionRate)
	s.Empty(stats.BoothStatistics)
	s.Len(stats.HourlyStatistics, 24)
}

func (s *ReportServiceSuite) TestGiftEligible() {
	boothA := s.addBooth("BOOTH001")
	boothB := s.addBooth("BOOTH002")

	start := s.now.Add(-3 * time.Hour)
	slow := s.addParticipant(start)
	fast := s.addParticipant(start)
	s.addParticipant(start) // incomplete, excluded

	s.stamp(fast, boothA, start.Add(10*time.Minute))
	s.stamp(fast, boothB, start.Add(20*time.Minute))
	s.stamp(slow, boothA, start.Add(30*time.Minute))

	s.complete(fast, start.Add(44*time.Minute+40*time.Second))
	s.complete(slow, start.Add(2*time.Hour))

	list, err := s.svc.GiftEligible(s.ctx)
	s.Require().NoError(err)

	s.Equal(2, list.TotalEligible)
	s.Require().Len(list.Participants, 2)

	// First finisher first.
	s.Equal(fast.ID, list.Participants[0].ParticipantID)
	s.Equal(slow.ID, list.Participants[1].ParticipantID)

	// Duration is rounded to the nearest whole minute: 44m40s rounds to 45.
	s.Require().NotNil(list.Participants[0].CompletionDuration)
	s.Equal(45, *list.Participants[0].CompletionDuration)
	s.Require().NotNil(list.Participants[1].CompletionDuration)
	s.Equal(120, *list.Participants[1].CompletionDuration)

	// Visit trail ordered by stamp time.
	s.Require().Len(list.Participants[0].VisitedBooths, 2)
	s.Equal("BOOTH001", list.Participants[0].VisitedBooths[0].BoothCode)
	s.Equal("BOOTH002", list.Participants[0].VisitedBooths[1].BoothCode)
}

// A completion persist can fail during a scan without failing the scan. The
// reward list must not trust the cached flag alone: a participant whose
// ledger crossed the threshold is repaired and listed.
func (s *ReportServiceSuite) TestGiftEligibleHealsStaleCompletion() {
	start := s.now.Add(-time.Hour)
	stale := s.addParticipant(start)
	for i := 0; i < participantmodels.CompletionThreshold; i++ {
		b := s.addBooth(fmt.Sprintf("BOOTH%03d", i+1))
		s.stamp(stale, b, start.Add(time.Duration(i)*time.Minute))
	}

	list, err := s.svc.GiftEligible(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, list.TotalEligible)
	s.Require().Len(list.Participants, 1)
	s.Equal(stale.ID, list.Participants[0].ParticipantID)
	s.Equal(participantmodels.CompletionThreshold, list.Participants[0].StampCount)
	s.Require().NotNil(list.Participants[0].CompletedAt)
	s.True(list.Participants[0].CompletedAt.Equal(s.now), "repair stamps the evaluation clock")

	// The repair is persisted, not just reported.
	healed, err := s.participants.FindByID(s.ctx, stale.ID)
	s.Require().NoError(err)
	s.True(healed.Completed)
}

func (s *ReportServiceSuite) TestHealthCheck() {
	b := s.addBooth("BOOTH001")
	p := s.addParticipant(s.now)
	s.stamp(p, b, s.now)

	health, err := s.svc.HealthCheck(s.ctx)
	s.Require().NoError(err)
	s.Equal("healthy", health.Status)
	s.Equal("OK", health.Database)
	s.Equal(1, health.Statistics.TotalParticipants)
	s.Equal(1, health.Statistics.ActiveBooths)
	s.Equal(1, health.Statistics.TotalStampsCollected)
}

func (s *ReportServiceSuite) TestHealthCheckUnreachableStorage() {
	svc := service.New(s.participants, s.visits, s.booths,
		service.WithPinger(failingPinger{}),
	)
	_, err := svc.HealthCheck(s.ctx)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

type failingPinger struct{}

func (failingPinger) PingContext(ctx context.Context) error {
	return context.DeadlineExceeded
}

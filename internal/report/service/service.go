package service

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	boothmodels "stamprally/internal/booth/models"
	participantmodels "stamprally/internal/participant/models"
	visitmodels "stamprally/internal/visit/models"
	dErrors "stamprally/pkg/domain-errors"
)

// ParticipantStore is the participant surface reporting needs. FindByID and
// Update exist so the gift-eligibility guard can repair a stale completion
// flag; nothing else here mutates state.
type ParticipantStore interface {
	Count(ctx context.Context) (int, error)
	CountCompleted(ctx context.Context) (int, error)
	ListCompleted(ctx context.Context) ([]*participantmodels.Participant, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error)
	FindByID(ctx context.Context, id uuid.UUID) (*participantmodels.Participant, error)
	Update(ctx context.Context, p *participantmodels.Participant) error
}

// VisitStore is the ledger read surface reporting needs.
type VisitStore interface {
	Count(ctx context.Context) (int, error)
	CountByBooth(ctx context.Context, boothID uuid.UUID) (int, error)
	CountByParticipant(ctx context.Context, participantID uuid.UUID) (int, error)
	CountStampedBetween(ctx context.Context, from, to time.Time) (int, error)
	ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]*visitmodels.Visit, error)
	ParticipantIDsWithAtLeast(ctx context.Context, minCount int) ([]uuid.UUID, error)
}

// BoothStore is the registry read surface reporting needs.
type BoothStore interface {
	ListActive(ctx context.Context) ([]*boothmodels.Booth, error)
	FindByID(ctx context.Context, id uuid.UUID) (*boothmodels.Booth, error)
}

// Pinger reports whether the backing store is reachable. The in-memory
// stores pass a nil pinger, which always reports healthy.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service builds the admin-facing views. Its only write is the
// gift-eligibility guard repairing a completion flag that never persisted.
type Service struct {
	participants ParticipantStore
	visits       VisitStore
	booths       BoothStore
	pinger       Pinger
	logger       *slog.Logger
	clock        func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func WithPinger(p Pinger) Option {
	return func(s *Service) { s.pinger = p }
}

// New constructs the reporting service.
func New(participants ParticipantStore, visits VisitStore, booths BoothStore, opts ...Option) *Service {
	s := &Service{
		participants: participants,
		visits:       visits,
		booths:       booths,
		logger:       slog.Default(),
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summary holds the headline numbers.
type Summary struct {
	TotalParticipants     int     `json:"total_participants"`
	CompletedParticipants int     `json:"completed_participants"`
	CompletionRate        float64 `json:"completion_rate"`
	GiftEligibleCount     int     `json:"gift_eligible_count"`
}

// BoothStat is the per-booth participation count with popularity rank
// (1 = most visited).
type BoothStat struct {
	BoothCode        string `json:"booth_code"`
	BoothName        string `json:"booth_name"`
	ParticipantCount int    `json:"participant_count"`
	PopularityRank   int    `json:"popularity_rank"`
}

// HourlyStat is one one-hour bucket of new participants and stamps.
type HourlyStat struct {
	Hour            string `json:"hour"`
	NewParticipants int    `json:"new_participants"`
	StampsCollected int    `json:"stamps_collected"`
}

// Statistics is the full admin dashboard payload.
type Statistics struct {
	Summary          Summary      `json:"summary"`
	BoothStatistics  []BoothStat  `json:"booth_statistics"`
	HourlyStatistics []HourlyStat `json:"hourly_statistics"`
}

// Statistics aggregates the dashboard view. The four independent reads fan
// out concurrently.
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	var (
		total, completed int
		boothStats       []BoothStat
		hourly           []HourlyStat
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		total, err = s.participants.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		completed, err = s.participants.CountCompleted(gctx)
		return err
	})
	g.Go(func() (err error) {
		boothStats, err = s.boothStatistics(gctx)
		return err
	})
	g.Go(func() (err error) {
		hourly, err = s.hourlyStatistics(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build statistics")
	}

	rate := 0.0
	if total > 0 {
		rate = math.Round(float64(completed)/float64(total)*1000) / 10
	}

	return &Statistics{
		Summary: Summary{
			TotalParticipants:     total,
			CompletedParticipants: completed,
			CompletionRate:        rate,
			GiftEligibleCount:     completed,
		},
		BoothStatistics:  boothStats,
		HourlyStatistics: hourly,
	}, nil
}

func (s *Service) boothStatistics(ctx context.Context) ([]BoothStat, error) {
	booths, err := s.booths.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	stats := make([]BoothStat, 0, len(booths))
	for _, b := range booths {
		count, err := s.visits.CountByBooth(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		stats = append(stats, BoothStat{BoothCode: b.Code, BoothName: b.Name, ParticipantCount: count})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].ParticipantCount > stats[j].ParticipantCount
	})
	for i := range stats {
		stats[i].PopularityRank = i + 1
	}
	return stats, nil
}

func (s *Service) hourlyStatistics(ctx context.Context) ([]HourlyStat, error) {
	now := s.clock()
	out := make([]HourlyStat, 0, 24)
	// Oldest bucket first.
	for i := 23; i >= 0; i-- {
		from := now.Add(-time.Duration(i+1) * time.Hour)
		to := now.Add(-time.Duration(i) * time.Hour)

		newParticipants, err := s.participants.CountCreatedBetween(ctx, from, to)
		if err != nil {
			return nil, err
		}
		stamps, err := s.visits.CountStampedBetween(ctx, from, to)
		if err != nil {
			return nil, err
		}
		out = append(out, HourlyStat{
			Hour:            from.Format("15") + ":00",
			NewParticipants: newParticipants,
			StampsCollected: stamps,
		})
	}
	return out, nil
}

// GiftBooth is a stamped booth in the eligibility payload.
type GiftBooth struct {
	BoothCode string    `json:"booth_code"`
	BoothName string    `json:"booth_name"`
	StampedAt time.Time `json:"stamped_at"`
}

// GiftParticipant is one reward-eligible participant.
type GiftParticipant struct {
	ParticipantID      uuid.UUID   `json:"participant_id"`
	CompletedAt        *time.Time  `json:"completed_at"`
	StampCount         int         `json:"stamp_count"`
	VisitedBooths      []GiftBooth `json:"visited_booths"`
	CompletionDuration *int        `json:"completion_duration"`
}

// GiftEligibleList is the reward-distribution view.
type GiftEligibleList struct {
	TotalEligible int                `json:"total_eligible"`
	Participants  []*GiftParticipant `json:"participants"`
}

// GiftEligible lists completed participants ordered by completion time
// ascending (first finisher first), each with their visit trail and how many
// whole minutes the mission took. The cached completed flag is never trusted
// alone: the ledger is swept for participants past the threshold whose flag
// was lost, and those are repaired and included.
func (s *Service) GiftEligible(ctx context.Context) (*GiftEligibleList, error) {
	completed, err := s.participants.ListCompleted(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list completed participants")
	}
	completed, err = s.healStaleCompletions(ctx, completed)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify completions")
	}

	out := make([]*GiftParticipant, 0, len(completed))
	for _, p := range completed {
		visits, err := s.visits.ListByParticipant(ctx, p.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list visits")
		}
		booths := make([]GiftBooth, 0, len(visits))
		for _, v := range visits {
			b, err := s.booths.FindByID(ctx, v.BoothID)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "booth lookup failed")
			}
			booths = append(booths, GiftBooth{BoothCode: b.Code, BoothName: b.Name, StampedAt: v.StampedAt})
		}

		var duration *int
		if p.CompletedAt != nil {
			minutes := int(math.Round(p.CompletedAt.Sub(p.CreatedAt).Minutes()))
			duration = &minutes
		}
		out = append(out, &GiftParticipant{
			ParticipantID:      p.ID,
			CompletedAt:        p.CompletedAt,
			StampCount:         len(visits),
			VisitedBooths:      booths,
			CompletionDuration: duration,
		})
	}
	return &GiftEligibleList{TotalEligible: len(out), Participants: out}, nil
}

// healStaleCompletions finds participants whose ledger already crossed the
// threshold but whose flag was never persisted (a completion write can fail
// during a scan without failing the scan) and re-runs the evaluation. A
// repair that cannot be persisted is logged; the participant is still listed
// because the visits prove eligibility.
func (s *Service) healStaleCompletions(ctx context.Context, completed []*participantmodels.Participant) ([]*participantmodels.Participant, error) {
	ids, err := s.visits.ParticipantIDsWithAtLeast(ctx, participantmodels.CompletionThreshold)
	if err != nil {
		return nil, err
	}
	listed := make(map[uuid.UUID]struct{}, len(completed))
	for _, p := range completed {
		listed[p.ID] = struct{}{}
	}

	healed := false
	for _, id := range ids {
		if _, ok := listed[id]; ok {
			continue
		}
		p, err := s.participants.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !p.Completed {
			count, err := s.visits.CountByParticipant(ctx, id)
			if err != nil {
				return nil, err
			}
			if !p.EvaluateCompletion(count, s.clock()) {
				continue
			}
			if err := s.participants.Update(ctx, p); err != nil {
				s.logger.ErrorContext(ctx, "failed to persist repaired completion",
					"participant_id", p.ID, "error", err)
			} else {
				s.logger.InfoContext(ctx, "repaired stale completion flag", "participant_id", p.ID)
			}
		}
		completed = append(completed, p)
		healed = true
	}

	if healed {
		sort.Slice(completed, func(i, j int) bool {
			ti, tj := completed[i].CompletedAt, completed[j].CompletedAt
			switch {
			case ti == nil:
				return false
			case tj == nil:
				return true
			default:
				return ti.Before(*tj)
			}
		})
	}
	return completed, nil
}

// Health is the system health payload.
type Health struct {
	Status         string       `json:"status"`
	Database       string       `json:"database"`
	ResponseTimeMs float64      `json:"response_time_ms"`
	Statistics     HealthTotals `json:"statistics"`
	Timestamp      time.Time    `json:"timestamp"`
}

// HealthTotals are the quick totals surfaced on the health endpoint.
type HealthTotals struct {
	TotalParticipants    int `json:"total_participants"`
	ActiveBooths         int `json:"active_booths"`
	TotalStampsCollected int `json:"total_stamps_collected"`
}

// HealthCheck verifies the backing store is reachable and gathers totals.
// Returns a CodeUnavailable error when storage is down; the handler maps it
// to 503 rather than swallowing it.
func (s *Service) HealthCheck(ctx context.Context) (*Health, error) {
	start := time.Now()

	if s.pinger != nil {
		if err := s.pinger.PingContext(ctx); err != nil {
			s.logger.ErrorContext(ctx, "health check failed", "error", err)
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "storage unreachable")
		}
	}

	total, err := s.participants.Count(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "storage unreachable")
	}
	booths, err := s.booths.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "storage unreachable")
	}
	stamps, err := s.visits.Count(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "storage unreachable")
	}

	return &Health{
		Status:         "healthy",
		Database:       "OK",
		ResponseTimeMs: math.Round(float64(time.Since(start).Microseconds())/10) / 100,
		Statistics: HealthTotals{
			TotalParticipants:    total,
			ActiveBooths:         len(booths),
			TotalStampsCollected: stamps,
		},
		Timestamp: s.clock(),
	}, nil
}

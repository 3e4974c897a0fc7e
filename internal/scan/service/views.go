package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	boothmodels "stamprally/internal/booth/models"
	participantmodels "stamprally/internal/participant/models"
	dErrors "stamprally/pkg/domain-errors"
	"stamprally/pkg/platform/sentinel"
)

// nextBoothsSample bounds the "booths you could visit next" hint. The pick is
// an implementation-defined sample (first unvisited active booths in code
// order), not a guarantee.
const nextBoothsSample = 3

// VisitedBooth is a stamped booth with its stamp time.
type VisitedBooth struct {
	Booth     *boothmodels.Booth `json:"booth"`
	StampedAt time.Time          `json:"stamped_at"`
}

// ParticipantRecord is the raw participant view with its visit history.
type ParticipantRecord struct {
	*participantmodels.Participant
	StampCount    int            `json:"stamp_count"`
	VisitedBooths []VisitedBooth `json:"stamp_records"`
}

// Stats is the participant progress view.
type Stats struct {
	ID                 uuid.UUID            `json:"id"`
	StampCount         int                  `json:"stamp_count"`
	Completed          bool                 `json:"is_completed"`
	CompletedAt        *time.Time           `json:"completed_at"`
	ProgressPercentage float64              `json:"progress_percentage"`
	RemainingStamps    int                  `json:"remaining_stamps"`
	NextBooths         []*boothmodels.Booth `json:"next_booths"`
	VisitedBooths      []VisitedBooth       `json:"visited_booths"`
}

// BoothStatus annotates a booth with this participant's visit state.
type BoothStatus struct {
	*boothmodels.Booth
	Visited   bool       `json:"visited"`
	StampedAt *time.Time `json:"stamped_at,omitempty"`
}

// Detail is Stats plus the full active booth list annotated with visit state.
type Detail struct {
	ID                 uuid.UUID      `json:"id"`
	StampCount         int            `json:"stamp_count"`
	Completed          bool           `json:"is_completed"`
	CompletedAt        *time.Time     `json:"completed_at"`
	ProgressPercentage float64        `json:"progress_percentage"`
	RemainingStamps    int            `json:"remaining_stamps"`
	VisitedBooths      []VisitedBooth `json:"visited_booths"`
	AllBooths          []BoothStatus  `json:"all_booths"`
}

// CreateParticipant issues a fresh anonymous identity outside the scan flow.
func (s *Service) CreateParticipant(ctx context.Context) (*participantmodels.Participant, error) {
	p := participantmodels.NewParticipant(s.clock())
	if err := s.participants.Create(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create participant")
	}
	s.metrics.IncrementParticipantsCreated()
	return p, nil
}

// GetParticipant returns the participant with its full visit history.
func (s *Service) GetParticipant(ctx context.Context, id uuid.UUID) (*ParticipantRecord, error) {
	p, visited, err := s.loadParticipant(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ParticipantRecord{
		Participant:   p,
		StampCount:    len(visited),
		VisitedBooths: visited,
	}, nil
}

// ParticipantStats returns the progress view with the next-booth sample.
func (s *Service) ParticipantStats(ctx context.Context, id uuid.UUID) (*Stats, error) {
	p, visited, err := s.loadParticipant(ctx, id)
	if err != nil {
		return nil, err
	}

	visitedIDs := make(map[uuid.UUID]struct{}, len(visited))
	for _, v := range visited {
		visitedIDs[v.Booth.ID] = struct{}{}
	}

	active, err := s.booths.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list booths")
	}
	next := make([]*boothmodels.Booth, 0, nextBoothsSample)
	for _, b := range active {
		if _, ok := visitedIDs[b.ID]; ok {
			continue
		}
		next = append(next, b)
		if len(next) == nextBoothsSample {
			break
		}
	}

	count := len(visited)
	return &Stats{
		ID:                 p.ID,
		StampCount:         count,
		Completed:          p.Completed,
		CompletedAt:        p.CompletedAt,
		ProgressPercentage: participantmodels.ProgressPercentage(count),
		RemainingStamps:    participantmodels.RemainingVisits(count),
		NextBooths:         next,
		VisitedBooths:      visited,
	}, nil
}

// ParticipantDetail returns the progress view with every active booth
// annotated as visited or not.
func (s *Service) ParticipantDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	p, visited, err := s.loadParticipant(ctx, id)
	if err != nil {
		return nil, err
	}

	stampTimes := make(map[uuid.UUID]time.Time, len(visited))
	for _, v := range visited {
		stampTimes[v.Booth.ID] = v.StampedAt
	}

	active, err := s.booths.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list booths")
	}
	all := make([]BoothStatus, 0, len(active))
	for _, b := range active {
		status := BoothStatus{Booth: b}
		if t, ok := stampTimes[b.ID]; ok {
			status.Visited = true
			stamped := t
			status.StampedAt = &stamped
		}
		all = append(all, status)
	}

	count := len(visited)
	return &Detail{
		ID:                 p.ID,
		StampCount:         count,
		Completed:          p.Completed,
		CompletedAt:        p.CompletedAt,
		ProgressPercentage: participantmodels.ProgressPercentage(count),
		RemainingStamps:    participantmodels.RemainingVisits(count),
		VisitedBooths:      visited,
		AllBooths:          all,
	}, nil
}

// loadParticipant fetches the participant and its visit history, re-running
// the completion evaluation when the cached flag lags the ledger (a crash
// between the visit write and the completion write leaves exactly that gap).
func (s *Service) loadParticipant(ctx context.Context, id uuid.UUID) (*participantmodels.Participant, []VisitedBooth, error) {
	p, err := s.participants.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "participant not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "participant lookup failed")
	}

	visits, err := s.visits.ListByParticipant(ctx, id)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list visits")
	}

	s.evaluateCompletion(ctx, p, len(visits))

	visited := make([]VisitedBooth, 0, len(visits))
	for _, v := range visits {
		booth, err := s.booths.FindByID(ctx, v.BoothID)
		if err != nil {
			return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "booth lookup failed")
		}
		visited = append(visited, VisitedBooth{Booth: booth, StampedAt: v.StampedAt})
	}
	return p, visited, nil
}

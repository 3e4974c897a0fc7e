package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stamprally/internal/booth/models"
	dErrors "stamprally/pkg/domain-errors"
	"stamprally/pkg/platform/sentinel"
)

// BoothStore is the persistence port for the booth registry.
type BoothStore interface {
	CreateIfCodeAvailable(ctx context.Context, b *models.Booth) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booth, error)
	FindByCode(ctx context.Context, code string) (*models.Booth, error)
	FindActiveByCode(ctx context.Context, code string) (*models.Booth, error)
	ListActive(ctx context.Context) ([]*models.Booth, error)
	ListAll(ctx context.Context) ([]*models.Booth, error)
	Update(ctx context.Context, b *models.Booth) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// VisitCounter reports how many participants have stamped a booth. The
// registry consults it before deleting: a booth with ledger entries may only
// be deactivated.
type VisitCounter interface {
	CountByBooth(ctx context.Context, boothID uuid.UUID) (int, error)
}

// Service manages the booth registry.
type Service struct {
	booths BoothStore
	visits VisitCounter
	logger *slog.Logger
	clock  func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// New constructs the booth registry service.
func New(booths BoothStore, visits VisitCounter, opts ...Option) *Service {
	s := &Service{
		booths: booths,
		visits: visits,
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BoothWithVisits pairs a booth with the number of participants who stamped it.
type BoothWithVisits struct {
	*models.Booth
	VisitCount int `json:"participant_count"`
}

// Create registers a new booth, failing with a conflict if the code is taken.
func (s *Service) Create(ctx context.Context, code, name, description string, active bool) (*models.Booth, error) {
	b, err := models.NewBooth(code, name, description, active, s.clock())
	if err != nil {
		return nil, err
	}
	if err := s.booths.CreateIfCodeAvailable(ctx, b); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, fmt.Sprintf("booth code %q already exists", code))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create booth")
	}
	s.logger.InfoContext(ctx, "booth created", "booth_code", b.Code, "booth_id", b.ID)
	return b, nil
}

// Update replaces the booth's attributes. A code that collides with a
// different booth is rejected; keeping the booth's own code is fine.
func (s *Service) Update(ctx context.Context, id uuid.UUID, code, name, description string, active bool) (*models.Booth, error) {
	if err := models.Validate(code, name); err != nil {
		return nil, err
	}
	b, err := s.booths.FindByID(ctx, id)
	if err != nil {
		return nil, wrapBoothErr(err)
	}

	b.Code = code
	b.Name = name
	b.Description = description
	b.Active = active
	b.UpdatedAt = s.clock()

	if err := s.booths.Update(ctx, b); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, dErrors.New(dErrors.CodeConflict, fmt.Sprintf("booth code %q already exists", code))
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "booth not found")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update booth")
		}
	}
	return b, nil
}

// DeleteAction says whether a booth removal hard-deleted the row or only
// deactivated it.
type DeleteAction string

const (
	ActionDeleted     DeleteAction = "deleted"
	ActionDeactivated DeleteAction = "deactivated"
)

// DeleteResult reports the outcome of DeleteOrDeactivate.
type DeleteResult struct {
	Action     DeleteAction `json:"action"`
	BoothCode  string       `json:"booth_code"`
	VisitCount int          `json:"participant_count,omitempty"`
}

// DeleteOrDeactivate removes a booth with zero recorded visits outright, and
// deactivates one that the ledger references. The ledger rows always survive.
func (s *Service) DeleteOrDeactivate(ctx context.Context, id uuid.UUID) (*DeleteResult, error) {
	b, err := s.booths.FindByID(ctx, id)
	if err != nil {
		return nil, wrapBoothErr(err)
	}

	count, err := s.visits.CountByBooth(ctx, b.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count booth visits")
	}

	if count > 0 {
		b.Deactivate(s.clock())
		if err := s.booths.Update(ctx, b); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate booth")
		}
		s.logger.InfoContext(ctx, "booth deactivated", "booth_code", b.Code, "visit_count", count)
		return &DeleteResult{Action: ActionDeactivated, BoothCode: b.Code, VisitCount: count}, nil
	}

	if err := s.booths.Delete(ctx, b.ID); err != nil {
		return nil, wrapBoothErr(err)
	}
	s.logger.InfoContext(ctx, "booth deleted", "booth_code", b.Code)
	return &DeleteResult{Action: ActionDeleted, BoothCode: b.Code}, nil
}

// GetActiveByCode is the public lookup: inactive booths look exactly like
// missing ones.
func (s *Service) GetActiveByCode(ctx context.Context, code string) (*BoothWithVisits, error) {
	if code == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "booth code is required")
	}
	b, err := s.booths.FindActiveByCode(ctx, code)
	if err != nil {
		return nil, wrapBoothErr(err)
	}
	return s.withVisits(ctx, b)
}

// ListActive returns the active booths, code ascending, with visit counts.
func (s *Service) ListActive(ctx context.Context) ([]*BoothWithVisits, error) {
	booths, err := s.booths.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list booths")
	}
	return s.withVisitsAll(ctx, booths)
}

// ListAll returns every booth including deactivated ones. Admin surface only.
func (s *Service) ListAll(ctx context.Context) ([]*BoothWithVisits, error) {
	booths, err := s.booths.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list booths")
	}
	return s.withVisitsAll(ctx, booths)
}

func (s *Service) withVisitsAll(ctx context.Context, booths []*models.Booth) ([]*BoothWithVisits, error) {
	out := make([]*BoothWithVisits, 0, len(booths))
	for _, b := range booths {
		bw, err := s.withVisits(ctx, b)
		if err != nil {
			return nil, err
		}
		out = append(out, bw)
	}
	return out, nil
}

func (s *Service) withVisits(ctx context.Context, b *models.Booth) (*BoothWithVisits, error) {
	count, err := s.visits.CountByBooth(ctx, b.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count booth visits")
	}
	return &BoothWithVisits{Booth: b, VisitCount: count}, nil
}

func wrapBoothErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "booth not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "booth store failure")
}

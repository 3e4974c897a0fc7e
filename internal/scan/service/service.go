package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	boothmodels "stamprally/internal/booth/models"
	participantmodels "stamprally/internal/participant/models"
	"stamprally/internal/platform/metrics"
	visitmodels "stamprally/internal/visit/models"
	dErrors "stamprally/pkg/domain-errors"
	"stamprally/pkg/platform/sentinel"
)

// BoothStore is the registry surface the orchestrator needs.
type BoothStore interface {
	FindActiveByCode(ctx context.Context, code string) (*boothmodels.Booth, error)
	FindByID(ctx context.Context, id uuid.UUID) (*boothmodels.Booth, error)
	ListActive(ctx context.Context) ([]*boothmodels.Booth, error)
}

// ParticipantStore is the identity surface the orchestrator needs.
type ParticipantStore interface {
	Create(ctx context.Context, p *participantmodels.Participant) error
	FindByID(ctx context.Context, id uuid.UUID) (*participantmodels.Participant, error)
	Update(ctx context.Context, p *participantmodels.Participant) error
}

// VisitStore is the ledger surface the orchestrator needs. Create must
// enforce pair uniqueness; the Exists pre-check here is only an optimization.
type VisitStore interface {
	Create(ctx context.Context, v *visitmodels.Visit) error
	Exists(ctx context.Context, participantID, boothID uuid.UUID) (bool, error)
	CountByParticipant(ctx context.Context, participantID uuid.UUID) (int, error)
	ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]*visitmodels.Visit, error)
	VisitedBoothIDs(ctx context.Context, participantID uuid.UUID) (map[uuid.UUID]struct{}, error)
}

// Service is the scan orchestrator: it resolves or creates the participant,
// validates the booth, records the visit exactly once per pair, runs the
// completion evaluation, and serves the participant-facing read views.
type Service struct {
	booths       BoothStore
	participants ParticipantStore
	visits       VisitStore
	logger       *slog.Logger
	metrics      *metrics.Metrics
	clock        func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// New constructs the scan service.
func New(booths BoothStore, participants ParticipantStore, visits VisitStore, opts ...Option) *Service {
	s := &Service{
		booths:       booths,
		participants: participants,
		visits:       visits,
		logger:       slog.Default(),
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScanRequest is one QR scan attempt. ParticipantID is the raw client-held
// identifier and may be empty, stale, or garbage; all three mean "new
// participant".
type ScanRequest struct {
	ParticipantID string
	BoothCode     string
	Meta          visitmodels.Metadata
}

// ScanResult is the outcome of a successful scan.
type ScanResult struct {
	ParticipantID    uuid.UUID  `json:"participant_id"`
	BoothName        string     `json:"booth_name"`
	StampCount       int        `json:"stamp_count"`
	Completed        bool       `json:"is_completed"`
	CompletedAt      *time.Time `json:"completed_at"`
	IsNewParticipant bool       `json:"is_new_participant"`
}

// DuplicateVisitError rejects a second stamp for the same (participant,
// booth) pair. It carries the participant's current state so the caller can
// render "you already have this stamp" with a live count instead of a bare
// error.
type DuplicateVisitError struct {
	ParticipantID uuid.UUID  `json:"participant_id"`
	BoothName     string     `json:"booth_name"`
	StampCount    int        `json:"stamp_count"`
	Completed     bool       `json:"is_completed"`
	CompletedAt   *time.Time `json:"completed_at"`
}

func (e *DuplicateVisitError) Error() string {
	return "stamp already collected for this booth"
}

// Unwrap lets generic error mapping treat a duplicate visit as a conflict.
func (e *DuplicateVisitError) Unwrap() error {
	return dErrors.New(dErrors.CodeConflict, e.Error())
}

// Scan runs the full state machine: booth validation → identity resolution →
// duplicate check → visit write → completion check → response. The booth is
// checked before identity resolution so a rejected scan never mints a
// participant nobody will ever hold.
func (s *Service) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	if req.BoothCode == "" {
		s.metrics.RecordScan(metrics.ScanOutcomeRejected)
		return nil, dErrors.New(dErrors.CodeBadRequest, "booth code is required")
	}

	// Deactivated and nonexistent booths are deliberately indistinguishable.
	booth, err := s.booths.FindActiveByCode(ctx, req.BoothCode)
	if err != nil {
		s.metrics.RecordScan(metrics.ScanOutcomeRejected)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "booth not found or inactive")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "booth lookup failed")
	}

	participant, isNew, err := s.resolveParticipant(ctx, req.ParticipantID)
	if err != nil {
		s.metrics.RecordScan(metrics.ScanOutcomeRejected)
		return nil, err
	}

	// Optimistic pre-check; the store's uniqueness constraint is the arbiter.
	exists, err := s.visits.Exists(ctx, participant.ID, booth.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "visit lookup failed")
	}
	if exists {
		return nil, s.duplicate(ctx, participant, booth)
	}

	visit := &visitmodels.Visit{
		ID:            uuid.New(),
		ParticipantID: participant.ID,
		BoothID:       booth.ID,
		StampedAt:     s.clock(),
		ClientIP:      req.Meta.ClientIP,
		UserAgent:     req.Meta.UserAgent,
	}
	if err := s.visits.Create(ctx, visit); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			// Lost the race against a concurrent scan of the same pair.
			return nil, s.duplicate(ctx, participant, booth)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record visit")
	}

	count, err := s.visits.CountByParticipant(ctx, participant.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count visits")
	}

	s.evaluateCompletion(ctx, participant, count)
	s.metrics.RecordScan(metrics.ScanOutcomeStamped)
	s.logScan(ctx, participant, booth, count, req.Meta)

	return &ScanResult{
		ParticipantID:    participant.ID,
		BoothName:        booth.Name,
		StampCount:       count,
		Completed:        participant.Completed,
		CompletedAt:      participant.CompletedAt,
		IsNewParticipant: isNew,
	}, nil
}

// resolveParticipant finds the supplied participant or creates a fresh one.
// An unparseable or unknown identifier is treated as absent, never as an
// error: clients hold these ids in local storage and may present stale ones.
func (s *Service) resolveParticipant(ctx context.Context, rawID string) (*participantmodels.Participant, bool, error) {
	if rawID != "" {
		if id, err := uuid.Parse(rawID); err == nil {
			p, err := s.participants.FindByID(ctx, id)
			if err == nil {
				return p, false, nil
			}
			if !errors.Is(err, sentinel.ErrNotFound) {
				return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "participant lookup failed")
			}
		}
	}

	p := participantmodels.NewParticipant(s.clock())
	if err := s.participants.Create(ctx, p); err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create participant")
	}
	s.metrics.IncrementParticipantsCreated()
	return p, true, nil
}

// evaluateCompletion runs the completion rule and persists a transition.
// A persistence failure here is logged but does not fail the scan: the visit
// is already committed and the read paths re-evaluate from the live count.
func (s *Service) evaluateCompletion(ctx context.Context, p *participantmodels.Participant, count int) {
	if !p.EvaluateCompletion(count, s.clock()) {
		return
	}
	if err := s.participants.Update(ctx, p); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist completion, will self-heal on next evaluation",
			"participant_id", p.ID, "error", err)
		return
	}
	s.metrics.IncrementCompletions()
	s.logger.InfoContext(ctx, "mission completed", "participant_id", p.ID, "completed_at", p.CompletedAt)
}

func (s *Service) duplicate(ctx context.Context, p *participantmodels.Participant, b *boothmodels.Booth) error {
	s.metrics.RecordScan(metrics.ScanOutcomeDuplicate)
	count, err := s.visits.CountByParticipant(ctx, p.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count visits")
	}
	return &DuplicateVisitError{
		ParticipantID: p.ID,
		BoothName:     b.Name,
		StampCount:    count,
		Completed:     p.Completed,
		CompletedAt:   p.CompletedAt,
	}
}

func (s *Service) logScan(ctx context.Context, p *participantmodels.Participant, b *boothmodels.Booth, count int, meta visitmodels.Metadata) {
	browser := ""
	if meta.UserAgent != "" {
		ua := useragent.New(meta.UserAgent)
		name, version := ua.Browser()
		browser = name + " " + version
	}
	s.logger.InfoContext(ctx, "stamp recorded",
		"participant_id", p.ID,
		"booth_code", b.Code,
		"stamp_count", count,
		"client_ip", meta.ClientIP,
		"client_browser", browser,
	)
}

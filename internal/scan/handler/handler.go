package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	participantmodels "stamprally/internal/participant/models"
	"stamprally/internal/platform/middleware"
	scanservice "stamprally/internal/scan/service"
	"stamprally/internal/transport/http/shared"
	visitmodels "stamprally/internal/visit/models"
	dErrors "stamprally/pkg/domain-errors"
)

// Service is the scan orchestrator surface the handler needs.
type Service interface {
	Scan(ctx context.Context, req scanservice.ScanRequest) (*scanservice.ScanResult, error)
	CreateParticipant(ctx context.Context) (*participantmodels.Participant, error)
	GetParticipant(ctx context.Context, id uuid.UUID) (*scanservice.ParticipantRecord, error)
	ParticipantStats(ctx context.Context, id uuid.UUID) (*scanservice.Stats, error)
	ParticipantDetail(ctx context.Context, id uuid.UUID) (*scanservice.Detail, error)
}

// Handler serves the participant-facing scan and progress endpoints, plus the
// HTML landing page QR codes point at.
type Handler struct {
	scans     Service
	logger    *slog.Logger
	rateLimit func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithRateLimit applies a limiter to the scan endpoints.
func WithRateLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) { h.rateLimit = mw }
}

// New creates the scan handler.
func New(scans Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{scans: scans, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the public routes.
func (h *Handler) Register(r chi.Router) {
	scan := func(r chi.Router) {
		if h.rateLimit != nil {
			r.Use(h.rateLimit)
		}
		r.Post("/api/scan", h.handleScan)
		r.Post("/api/stamps", h.handleScan)
	}
	r.Group(scan)

	r.Post("/api/participants", h.handleCreateParticipant)
	r.Get("/api/participants/{id}", h.handleGetParticipant)
	r.Get("/api/participants/{id}/stats", h.handleParticipantStats)
	r.Get("/api/participants/{id}/detail", h.handleParticipantDetail)

	r.Get("/stamp", h.handleStampPage)
}

type scanRequest struct {
	ParticipantID string `json:"participant_id"`
	BoothCode     string `json:"booth_code"`
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.scans.Scan(ctx, scanservice.ScanRequest{
		ParticipantID: req.ParticipantID,
		BoothCode:     req.BoothCode,
		Meta: visitmodels.Metadata{
			ClientIP:  middleware.GetClientIP(ctx),
			UserAgent: middleware.GetUserAgent(ctx),
		},
	})
	if err != nil {
		var dup *scanservice.DuplicateVisitError
		if errors.As(err, &dup) {
			shared.WriteErrorData(w, http.StatusConflict, dup.Error(), dup)
			return
		}
		h.logScanFailure(ctx, req.BoothCode, err)
		shared.WriteError(w, err)
		return
	}

	message := "stamp collected"
	if result.Completed {
		message = "stamp collected, mission complete"
	}
	shared.WriteSuccess(w, http.StatusCreated, message, result)
}

func (h *Handler) handleCreateParticipant(w http.ResponseWriter, r *http.Request) {
	p, err := h.scans.CreateParticipant(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to create participant", "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteSuccess(w, http.StatusCreated, "participant created", p)
}

func (h *Handler) handleGetParticipant(w http.ResponseWriter, r *http.Request) {
	id, ok := h.participantID(w, r)
	if !ok {
		return
	}
	record, err := h.scans.GetParticipant(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteSuccess(w, http.StatusOK, "", record)
}

func (h *Handler) handleParticipantStats(w http.ResponseWriter, r *http.Request) {
	id, ok := h.participantID(w, r)
	if !ok {
		return
	}
	stats, err := h.scans.ParticipantStats(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteSuccess(w, http.StatusOK, "", stats)
}

func (h *Handler) handleParticipantDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := h.participantID(w, r)
	if !ok {
		return
	}
	detail, err := h.scans.ParticipantDetail(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteSuccess(w, http.StatusOK, "", detail)
}

// participantID parses the {id} route parameter. Unlike scan identity
// resolution, a malformed id on a read endpoint is the caller's mistake.
func (h *Handler) participantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid participant id"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) logScanFailure(ctx context.Context, boothCode string, err error) {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "scan failed", "booth_code", boothCode, "error", err)
		return
	}
	h.logger.WarnContext(ctx, "scan rejected", "booth_code", boothCode, "code", string(code))
}

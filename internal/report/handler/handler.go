package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"stamprally/internal/report/service"
	"stamprally/internal/transport/http/shared"
)

// Service is the reporting surface the handler needs.
type Service interface {
	Statistics(ctx context.Context) (*service.Statistics, error)
	GiftEligible(ctx context.Context) (*service.GiftEligibleList, error)
	HealthCheck(ctx context.Context) (*service.Health, error)
}

// Handler serves the admin reporting endpoints.
type Handler struct {
	reports Service
	logger  *slog.Logger
}

// New creates the report handler.
func New(reports Service, logger *slog.Logger) *Handler {
	return &Handler{reports: reports, logger: logger}
}

// RegisterAdmin mounts the reporting routes. The caller wraps these with the
// admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/statistics", h.handleStatistics)
	r.Get("/gift-eligible", h.handleGiftEligible)
	r.Get("/health", h.handleHealth)
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.Statistics(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to build statistics", "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteSuccess(w, http.StatusOK, "", stats)
}

func (h *Handler) handleGiftEligible(w http.ResponseWriter, r *http.Request) {
	list, err := h.reports.GiftEligible(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to build gift eligibility list", "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteSuccess(w, http.StatusOK, "", list)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	health, err := h.reports.HealthCheck(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "health check failed", "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteSuccess(w, http.StatusOK, "", health)
}

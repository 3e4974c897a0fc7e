package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"stamprally/internal/booth/models"
	"stamprally/internal/booth/service"
	"stamprally/internal/transport/http/shared"
	dErrors "stamprally/pkg/domain-errors"
)

// Service is the registry surface the handler needs.
type Service interface {
	Create(ctx context.Context, code, name, description string, active bool) (*models.Booth, error)
	Update(ctx context.Context, id uuid.UUID, code, name, description string, active bool) (*models.Booth, error)
	DeleteOrDeactivate(ctx context.Context, id uuid.UUID) (*service.DeleteResult, error)
	GetActiveByCode(ctx context.Context, code string) (*service.BoothWithVisits, error)
	ListActive(ctx context.Context) ([]*service.BoothWithVisits, error)
	ListAll(ctx context.Context) ([]*service.BoothWithVisits, error)
}

// Handler serves booth registry endpoints. Public routes only see active
// booths; the admin routes manage the full registry.
type Handler struct {
	booths Service
	logger *slog.Logger
}

// New creates the booth handler.
func New(booths Service, logger *slog.Logger) *Handler {
	return &Handler{booths: booths, logger: logger}
}

// RegisterPublic mounts the participant-facing routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/api/booths", h.handleListActive)
	r.Get("/api/booths/{code}", h.handleGetByCode)
}

// RegisterAdmin mounts the management routes. The caller wraps these with the
// admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/booths", h.handleListAll)
	r.Post("/booths", h.handleCreate)
	r.Put("/booths/{id}", h.handleUpdate)
	r.Delete("/booths/{id}", h.handleDelete)
}

func (h *Handler) handleListActive(w http.ResponseWriter, r *http.Request) {
	booths, err := h.booths.ListActive(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list booths", "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteSuccess(w, http.StatusOK, "", booths)
}

func (h *Handler) handleGetByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	booth, err := h.booths.GetActiveByCode(r.Context(), code)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteSuccess(w, http.StatusOK, "", booth)
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	booths, err := h.booths.ListAll(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list booths", "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteSuccess(w, http.StatusOK, "", booths)
}

type boothRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func (req *boothRequest) active() bool {
	if req.IsActive == nil {
		return true
	}
	return *req.IsActive
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req boothRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	booth, err := h.booths.Create(r.Context(), req.Code, req.Name, req.Description, req.active())
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(r.Context(), "failed to create booth", "error", err)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteSuccess(w, http.StatusCreated, "booth created", booth)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.boothID(w, r)
	if !ok {
		return
	}

	var req boothRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	booth, err := h.booths.Update(r.Context(), id, req.Code, req.Name, req.Description, req.active())
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(r.Context(), "failed to update booth", "error", err)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteSuccess(w, http.StatusOK, "booth updated", booth)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.boothID(w, r)
	if !ok {
		return
	}

	result, err := h.booths.DeleteOrDeactivate(r.Context(), id)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(r.Context(), "failed to delete booth", "error", err)
		}
		shared.WriteError(w, err)
		return
	}

	message := "booth deleted"
	if result.Action == service.ActionDeactivated {
		message = "booth has recorded stamps and was deactivated instead"
	}
	shared.WriteSuccess(w, http.StatusOK, message, result)
}

func (h *Handler) boothID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid booth id"))
		return uuid.Nil, false
	}
	return id, true
}

package handler

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	participantmodels "stamprally/internal/participant/models"
	"stamprally/internal/platform/middleware"
	scanservice "stamprally/internal/scan/service"
	visitmodels "stamprally/internal/visit/models"
	dErrors "stamprally/pkg/domain-errors"
)

//go:embed templates/*.html
var templateFS embed.FS

var stampTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	participantCookie = "participant_id"
	cookieMaxAge      = 30 * 24 * time.Hour
)

type stampPageData struct {
	BoothName       string
	StampCount      int
	Completed       bool
	Duplicate       bool
	RemainingStamps int
}

type errorPageData struct {
	Message string
}

// handleStampPage is the page a scanned QR code opens. The participant id
// rides in a cookie so the same phone keeps the same identity across booths;
// a missing or stale cookie just mints a new participant.
func (h *Handler) handleStampPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	boothCode := r.URL.Query().Get("booth")

	participantID := ""
	if c, err := r.Cookie(participantCookie); err == nil {
		participantID = c.Value
	}

	result, err := h.scans.Scan(ctx, scanservice.ScanRequest{
		ParticipantID: participantID,
		BoothCode:     boothCode,
		Meta: visitmodels.Metadata{
			ClientIP:  middleware.ClientIPFromRequest(r),
			UserAgent: r.UserAgent(),
		},
	})
	if err != nil {
		var dup *scanservice.DuplicateVisitError
		if errors.As(err, &dup) {
			h.renderStampPage(w, http.StatusOK, stampPageData{
				BoothName:       dup.BoothName,
				StampCount:      dup.StampCount,
				Completed:       dup.Completed,
				Duplicate:       true,
				RemainingStamps: participantmodels.RemainingVisits(dup.StampCount),
			})
			return
		}
		h.renderErrorPage(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     participantCookie,
		Value:    result.ParticipantID.String(),
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.renderStampPage(w, http.StatusOK, stampPageData{
		BoothName:       result.BoothName,
		StampCount:      result.StampCount,
		Completed:       result.Completed,
		RemainingStamps: participantmodels.RemainingVisits(result.StampCount),
	})
}

func (h *Handler) renderStampPage(w http.ResponseWriter, status int, data stampPageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := stampTemplates.ExecuteTemplate(w, "stamp.html", data); err != nil {
		h.logger.Error("failed to render stamp page", "error", err)
	}
}

func (h *Handler) renderErrorPage(w http.ResponseWriter, err error) {
	status := dErrors.ToHTTPStatus(dErrors.CodeOf(err))
	msg := dErrors.MessageOf(err)
	if status == http.StatusInternalServerError {
		msg = "something went wrong, please try again"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if terr := stampTemplates.ExecuteTemplate(w, "error.html", errorPageData{Message: msg}); terr != nil {
		h.logger.Error("failed to render error page", "error", terr)
	}
}

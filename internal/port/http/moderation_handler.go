package http

import (
	"net/http"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/Shiyikai2002/student-trading-platform/internal/service"
	"github.com/go-chi/chi/v5"
)

type ModerationHandler struct {
	moderation service.ModerationService
	log        logger.Logger
}

func NewModerationHandler(moderation service.ModerationService, log logger.Logger) *ModerationHandler {
	return &ModerationHandler{moderation: moderation, log: log.Named("moderation_handler")}
}

type reportRequest struct {
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

func (h *ModerationHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req reportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	report, err := h.moderation.Report(r.Context(), userID, chi.URLParam(r, "id"), req.Reason, req.Description)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (h *ModerationHandler) HandleReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req ratingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	review, err := h.moderation.Review(r.Context(), userID, chi.URLParam(r, "id"), req.Rating, req.Comment)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (h *ModerationHandler) HandleListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.moderation.ListReviews(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (h *ModerationHandler) HandleItemRating(w http.ResponseWriter, r *http.Request) {
	summary, err := h.moderation.ItemRating(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *ModerationHandler) HandleListReports(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	status := entity.ReportStatus(r.URL.Query().Get("status"))
	reports, err := h.moderation.ListReports(r.Context(), userID, status)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

type reportStatusRequest struct {
	Status entity.ReportStatus `json:"status"`
}

func (h *ModerationHandler) HandleUpdateReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req reportStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	report, err := h.moderation.UpdateReportStatus(r.Context(), userID, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

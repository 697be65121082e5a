package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/relaycrm/outreach-engine/pkg/auth"
	"github.com/relaycrm/outreach-engine/pkg/services"
)

// ReportsHandler handles reporting HTTP requests.
type ReportsHandler struct {
	reportService services.ReportService
	logger        *zap.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(reportService services.ReportService, logger *zap.Logger) *ReportsHandler {
	return &ReportsHandler{
		reportService: reportService,
		logger:        logger,
	}
}

// RegisterRoutes registers the reports handler's routes on the given mux.
// The overview also accepts the internal API key for the dashboard's
// server-side renderer.
func (h *ReportsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/reports/overview", authMiddleware.RequireAuthOrAPIKey(h.Overview))
	mux.HandleFunc("GET /api/reports/owners", authMiddleware.RequireAuth(h.Owners))
	mux.HandleFunc("GET /api/reports/activity", authMiddleware.RequireAuth(h.Activity))
}

// Overview handles GET /api/reports/overview
func (h *ReportsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.reportService.Overview(r.Context())
	if err != nil {
		h.logger.Error("Failed to build overview report", zap.Error(err))
		ServiceError(w, h.logger, "overview_report_failed", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: overview}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Owners handles GET /api/reports/owners
func (h *ReportsHandler) Owners(w http.ResponseWriter, r *http.Request) {
	rollups, err := h.reportService.OwnerRollups(r.Context())
	if err != nil {
		h.logger.Error("Failed to build owner report", zap.Error(err))
		ServiceError(w, h.logger, "owner_report_failed", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: rollups}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Activity handles GET /api/reports/activity
func (h *ReportsHandler) Activity(w http.ResponseWriter, r *http.Request) {
	events, err := h.reportService.ActivityFeed(r.Context(), queryInt(r, "limit", 30))
	if err != nil {
		h.logger.Error("Failed to build activity feed", zap.Error(err))
		ServiceError(w, h.logger, "activity_feed_failed", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: events}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

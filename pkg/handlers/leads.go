package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/relaycrm/outreach-engine/pkg/auth"
	"github.com/relaycrm/outreach-engine/pkg/middleware"
	"github.com/relaycrm/outreach-engine/pkg/models"
	"github.com/relaycrm/outreach-engine/pkg/services"
)

// LeadListResponse for GET /api/leads
type LeadListResponse struct {
	Leads []*models.Lead `json:"leads"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// OverrideStageRequest for PUT /api/leads/{lid}/stage
type OverrideStageRequest struct {
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// BulkIngestRequest for POST /api/leads/bulk
type BulkIngestRequest struct {
	Records []models.LeadRecord `json:"records"`
}

// LeadsHandler handles lead-related HTTP requests.
type LeadsHandler struct {
	leadService   services.LeadService
	ingestService services.IngestService
	logger        *zap.Logger
}

// NewLeadsHandler creates a new leads handler.
func NewLeadsHandler(
	leadService services.LeadService,
	ingestService services.IngestService,
	logger *zap.Logger,
) *LeadsHandler {
	return &LeadsHandler{
		leadService:   leadService,
		ingestService: ingestService,
		logger:        logger,
	}
}

// RegisterRoutes registers the leads handler's routes on the given mux.
// Lookup-by-key and bulk ingest also accept the internal API key so the
// capture extension can call them without a user session.
func (h *LeadsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/leads", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST /api/leads", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /api/leads/by-key", authMiddleware.RequireAuthOrAPIKey(h.GetByKey))
	mux.HandleFunc("POST /api/leads/bulk", authMiddleware.RequireAuthOrAPIKey(h.BulkIngest))
	mux.HandleFunc("GET /api/leads/{lid}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PATCH /api/leads/{lid}", authMiddleware.RequireAuth(h.Update))
	mux.HandleFunc("PUT /api/leads/{lid}/stage", authMiddleware.RequireAdmin(h.OverrideStage))
}

// List handles GET /api/leads
func (h *LeadsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.LeadFilter{
		OwnerID:  queryUUID(r, "owner_id"),
		Campaign: r.URL.Query().Get("campaign"),
		Page:     queryInt(r, "page", 1),
		Limit:    queryInt(r, "limit", 50),
	}
	if raw := r.URL.Query().Get("stage"); raw != "" {
		stage, err := models.ParseStage(raw)
		if err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_stage", "Unknown stage "+raw); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		filter.Stage = stage
	}

	leads, total, err := h.leadService.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list leads", zap.Error(err))
		ServiceError(w, h.logger, "list_leads_failed", err)
		return
	}

	response := LeadListResponse{
		Leads: leads,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/leads
func (h *LeadsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.LeadRecord
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	user, _ := auth.GetUser(r.Context())
	lead, err := h.leadService.Create(r.Context(), user.ID, req)
	if err != nil {
		h.logger.Warn("Failed to create lead",
			zap.String("external_key", req.ExternalKey),
			zap.Error(err))
		ServiceError(w, h.logger, "create_lead_failed", err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: lead}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/leads/{lid}
func (h *LeadsHandler) Get(w http.ResponseWriter, r *http.Request) {
	leadID, ok := ParseLeadID(w, r, h.logger)
	if !ok {
		return
	}

	lead, err := h.leadService.Get(r.Context(), leadID)
	if err != nil {
		ServiceError(w, h.logger, "get_lead_failed", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: lead}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetByKey handles GET /api/leads/by-key?key=...
// The capture extension uses this to check whether a profile is already
// tracked before offering to save it.
func (h *LeadsHandler) GetByKey(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_key", "Query parameter key is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.leadService.GetByExternalKey(r.Context(), key)
	if err != nil {
		ServiceError(w, h.logger, "get_lead_failed", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PATCH /api/leads/{lid}
func (h *LeadsHandler) Update(w http.ResponseWriter, r *http.Request) {
	leadID, ok := ParseLeadID(w, r, h.logger)
	if !ok {
		return
	}

	var req models.LeadUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	lead, err := h.leadService.Update(r.Context(), leadID, req)
	if err != nil {
		h.logger.Warn("Failed to update lead",
			zap.String("lead_id", leadID.String()),
			zap.Error(err))
		ServiceError(w, h.logger, "update_lead_failed", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: lead}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// OverrideStage handles PUT /api/leads/{lid}/stage (admin only).
// Unlike event processing this can move a lead backwards, so it requires
// an explicit reason for the audit log.
func (h *LeadsHandler) OverrideStage(w http.ResponseWriter, r *http.Request) {
	leadID, ok := ParseLeadID(w, r, h.logger)
	if !ok {
		return
	}

	var req OverrideStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	stage, err := models.ParseStage(req.Stage)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_stage", "Unknown stage "+req.Stage); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	lead, err := h.leadService.OverrideStage(r.Context(), leadID, stage, req.Reason)
	if err != nil {
		h.logger.Warn("Failed to override lead stage",
			zap.String("lead_id", leadID.String()),
			zap.Error(err))
		ServiceError(w, h.logger, "override_stage_failed", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: lead}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// BulkIngest handles POST /api/leads/bulk
func (h *LeadsHandler) BulkIngest(w http.ResponseWriter, r *http.Request) {
	var req BulkIngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if len(req.Records) == 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, "empty_batch", "At least one record is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	user, _ := auth.GetUser(r.Context())
	summary, err := h.ingestService.IngestBatch(r.Context(), user.ID, req.Records)
	if err != nil {
		h.logger.Error("Bulk ingest aborted",
			zap.Int("records", len(req.Records)),
			zap.Error(err))
		ServiceError(w, h.logger, "bulk_ingest_failed", err)
		return
	}

	middleware.RecordIngestOutcome("created", summary.Created)
	middleware.RecordIngestOutcome("updated", summary.Updated)
	middleware.RecordIngestOutcome("skipped", summary.Skipped)

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: summary}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

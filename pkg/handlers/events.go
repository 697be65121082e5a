package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaycrm/outreach-engine/pkg/auth"
	"github.com/relaycrm/outreach-engine/pkg/middleware"
	"github.com/relaycrm/outreach-engine/pkg/models"
	"github.com/relaycrm/outreach-engine/pkg/services"
)

// RecordEventRequest for POST /api/events
type RecordEventRequest struct {
	LeadID     string         `json:"lead_id"`
	Kind       string         `json:"kind"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt *time.Time     `json:"occurred_at,omitempty"`
}

// EventListResponse for GET /api/events
type EventListResponse struct {
	Events []*models.Event `json:"events"`
	Total  int             `json:"total"`
}

// EventsHandler handles interaction event HTTP requests.
type EventsHandler struct {
	pipelineService services.PipelineService
	logger          *zap.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(pipelineService services.PipelineService, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{
		pipelineService: pipelineService,
		logger:          logger,
	}
}

// RegisterRoutes registers the events handler's routes on the given mux.
// Recording accepts the internal API key so the capture extension can
// report interactions directly.
func (h *EventsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/events", authMiddleware.RequireAuthOrAPIKey(h.Record))
	mux.HandleFunc("GET /api/events", authMiddleware.RequireAuth(h.List))
}

// Record handles POST /api/events
func (h *EventsHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req RecordEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	leadID, err := uuid.Parse(req.LeadID)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_lead_id", "Invalid lead ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	user, _ := auth.GetUser(r.Context())
	event := services.NewEvent{
		LeadID:   leadID,
		ActorID:  user.ID,
		Kind:     models.EventKind(req.Kind),
		Metadata: req.Metadata,
	}
	if req.OccurredAt != nil {
		event.OccurredAt = *req.OccurredAt
	}

	result, err := h.pipelineService.ProcessEvent(r.Context(), event)
	if err != nil {
		h.logger.Warn("Failed to process event",
			zap.String("lead_id", req.LeadID),
			zap.String("kind", req.Kind),
			zap.Error(err))
		ServiceError(w, h.logger, "process_event_failed", err)
		return
	}

	middleware.RecordEventProcessed(req.Kind, result.StageChanged)

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/events
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.EventFilter{
		LeadID:  queryUUID(r, "lead_id"),
		ActorID: queryUUID(r, "actor_id"),
		Kind:    models.EventKind(r.URL.Query().Get("kind")),
		Page:    queryInt(r, "page", 1),
		Limit:   queryInt(r, "limit", 50),
	}

	events, err := h.pipelineService.ListEvents(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list events", zap.Error(err))
		ServiceError(w, h.logger, "list_events_failed", err)
		return
	}

	response := EventListResponse{Events: events, Total: len(events)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

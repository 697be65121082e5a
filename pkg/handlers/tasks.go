package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaycrm/outreach-engine/pkg/auth"
	"github.com/relaycrm/outreach-engine/pkg/models"
	"github.com/relaycrm/outreach-engine/pkg/services"
)

// CreateTaskRequest for POST /api/tasks
type CreateTaskRequest struct {
	LeadID string     `json:"lead_id"`
	Label  string     `json:"label"`
	DueAt  *time.Time `json:"due_at,omitempty"`
}

// UpdateTaskStatusRequest for PATCH /api/tasks/{tid}
type UpdateTaskStatusRequest struct {
	Status string `json:"status"`
}

// TaskListResponse for GET /api/tasks
type TaskListResponse struct {
	Tasks []*models.Task `json:"tasks"`
	Total int            `json:"total"`
}

// TasksHandler handles follow-up task HTTP requests.
type TasksHandler struct {
	taskService services.TaskService
	logger      *zap.Logger
}

// NewTasksHandler creates a new tasks handler.
func NewTasksHandler(taskService services.TaskService, logger *zap.Logger) *TasksHandler {
	return &TasksHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// RegisterRoutes registers the tasks handler's routes on the given mux.
func (h *TasksHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/tasks", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST /api/tasks", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /api/tasks/overdue", authMiddleware.RequireAuth(h.ListOverdue))
	mux.HandleFunc("PATCH /api/tasks/{tid}", authMiddleware.RequireAuth(h.UpdateStatus))
	mux.HandleFunc("DELETE /api/tasks/{tid}", authMiddleware.RequireAuth(h.Delete))
}

// List handles GET /api/tasks
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.TaskFilter{
		LeadID:  queryUUID(r, "lead_id"),
		OwnerID: queryUUID(r, "owner_id"),
		Status:  models.TaskStatus(r.URL.Query().Get("status")),
		Page:    queryInt(r, "page", 1),
		Limit:   queryInt(r, "limit", 50),
	}

	tasks, err := h.taskService.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list tasks", zap.Error(err))
		ServiceError(w, h.logger, "list_tasks_failed", err)
		return
	}

	response := TaskListResponse{Tasks: tasks, Total: len(tasks)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/tasks
func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
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
	task, err := h.taskService.Create(r.Context(), leadID, user.ID, req.Label, req.DueAt)
	if err != nil {
		h.logger.Warn("Failed to create task",
			zap.String("lead_id", req.LeadID),
			zap.Error(err))
		ServiceError(w, h.logger, "create_task_failed", err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: task}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListOverdue handles GET /api/tasks/overdue
func (h *TasksHandler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskService.ListOverdue(r.Context())
	if err != nil {
		h.logger.Error("Failed to list overdue tasks", zap.Error(err))
		ServiceError(w, h.logger, "list_overdue_tasks_failed", err)
		return
	}

	response := TaskListResponse{Tasks: tasks, Total: len(tasks)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateStatus handles PATCH /api/tasks/{tid}
func (h *TasksHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	taskID, ok := ParseTaskID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateTaskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	task, err := h.taskService.SetStatus(r.Context(), taskID, models.TaskStatus(req.Status))
	if err != nil {
		h.logger.Warn("Failed to update task status",
			zap.String("task_id", taskID.String()),
			zap.Error(err))
		ServiceError(w, h.logger, "update_task_failed", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: task}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/tasks/{tid}
func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	taskID, ok := ParseTaskID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.taskService.Delete(r.Context(), taskID); err != nil {
		ServiceError(w, h.logger, "delete_task_failed", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Task deleted"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

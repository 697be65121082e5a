package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaycrm/outreach-engine/pkg/apperrors"
	"github.com/relaycrm/outreach-engine/pkg/models"
	"github.com/relaycrm/outreach-engine/pkg/repositories"
)

// defaultTaskDue is how far out a directly created task is due when the
// caller gives no due time.
const defaultTaskDue = 24 * time.Hour

// TaskService provides direct follow-up task operations. Pipeline-driven
// task creation lives in PipelineService; this covers explicit scheduling
// and status changes.
type TaskService interface {
	Create(ctx context.Context, leadID, ownerID uuid.UUID, label string, dueAt *time.Time) (*models.Task, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.TaskStatus) (*models.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error)
	ListOverdue(ctx context.Context) ([]*models.Task, error)
}

type taskService struct {
	tasks  repositories.TaskRepository
	leads  repositories.LeadRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewTaskService creates a new TaskService.
func NewTaskService(tasks repositories.TaskRepository, leads repositories.LeadRepository, logger *zap.Logger) TaskService {
	return &taskService{
		tasks:  tasks,
		leads:  leads,
		logger: logger.Named("tasks"),
		now:    time.Now,
	}
}

var _ TaskService = (*taskService)(nil)

// Create schedules an explicit follow-up for a lead.
func (s *taskService) Create(ctx context.Context, leadID, ownerID uuid.UUID, label string, dueAt *time.Time) (*models.Task, error) {
	if strings.TrimSpace(label) == "" {
		return nil, fmt.Errorf("%w: task label required", apperrors.ErrValidation)
	}

	if _, err := s.leads.Get(ctx, leadID); err != nil {
		return nil, fmt.Errorf("resolve lead %s: %w", leadID, err)
	}

	due := s.now().Add(defaultTaskDue)
	if dueAt != nil {
		due = *dueAt
	}

	task := &models.Task{
		LeadID:  leadID,
		OwnerID: ownerID,
		Label:   strings.TrimSpace(label),
		DueAt:   due,
		Status:  models.TaskOpen,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	return task, nil
}

// SetStatus flips a task between open and done.
func (s *taskService) SetStatus(ctx context.Context, id uuid.UUID, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status must be open or done", apperrors.ErrValidation)
	}

	task, err := s.tasks.SetStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("set task status: %w", err)
	}
	return task, nil
}

// Delete removes a task.
func (s *taskService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.tasks.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// List returns tasks matching the filter.
func (s *taskService) List(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error) {
	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListOverdue returns open tasks past due as of now.
func (s *taskService) ListOverdue(ctx context.Context) ([]*models.Task, error) {
	tasks, err := s.tasks.ListOverdue(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("list overdue tasks: %w", err)
	}
	return tasks, nil
}

package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/relaycrm/outreach-engine/pkg/models"
	"github.com/relaycrm/outreach-engine/pkg/repositories"
	"github.com/relaycrm/outreach-engine/pkg/services"
)

// mockLeadService is a configurable mock for all handler tests.
type mockLeadService struct {
	lead          *models.Lead
	leadWithTasks *services.LeadWithTasks
	leads         []*models.Lead
	total         int
	err           error

	lastUpdate models.LeadUpdate
	lastStage  models.Stage
	lastReason string
}

func (m *mockLeadService) Create(ctx context.Context, ownerID uuid.UUID, record models.LeadRecord) (*models.Lead, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.lead, nil
}

func (m *mockLeadService) Get(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.lead, nil
}

func (m *mockLeadService) GetByExternalKey(ctx context.Context, externalKey string) (*services.LeadWithTasks, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.leadWithTasks, nil
}

func (m *mockLeadService) List(ctx context.Context, filter models.LeadFilter) ([]*models.Lead, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.leads, m.total, nil
}

func (m *mockLeadService) Update(ctx context.Context, id uuid.UUID, update models.LeadUpdate) (*models.Lead, error) {
	m.lastUpdate = update
	if m.err != nil {
		return nil, m.err
	}
	return m.lead, nil
}

func (m *mockLeadService) OverrideStage(ctx context.Context, id uuid.UUID, stage models.Stage, reason string) (*models.Lead, error) {
	m.lastStage = stage
	m.lastReason = reason
	if m.err != nil {
		return nil, m.err
	}
	return m.lead, nil
}

// mockIngestService implements services.IngestService for handler tests.
type mockIngestService struct {
	summary     services.IngestSummary
	err         error
	lastRecords []models.LeadRecord
}

func (m *mockIngestService) IngestBatch(ctx context.Context, ownerID uuid.UUID, records []models.LeadRecord) (services.IngestSummary, error) {
	m.lastRecords = records
	if m.err != nil {
		return services.IngestSummary{}, m.err
	}
	return m.summary, nil
}

// mockPipelineService implements services.PipelineService for handler tests.
type mockPipelineService struct {
	result    *services.EventResult
	events    []*models.Event
	err       error
	lastEvent services.NewEvent
}

func (m *mockPipelineService) ProcessEvent(ctx context.Context, event services.NewEvent) (*services.EventResult, error) {
	m.lastEvent = event
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockPipelineService) ListEvents(ctx context.Context, filter models.EventFilter) ([]*models.Event, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.events, nil
}

// mockTaskService implements services.TaskService for handler tests.
type mockTaskService struct {
	task       *models.Task
	tasks      []*models.Task
	err        error
	lastStatus models.TaskStatus
}

func (m *mockTaskService) Create(ctx context.Context, leadID, ownerID uuid.UUID, label string, dueAt *time.Time) (*models.Task, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.task, nil
}

func (m *mockTaskService) SetStatus(ctx context.Context, id uuid.UUID, status models.TaskStatus) (*models.Task, error) {
	m.lastStatus = status
	if m.err != nil {
		return nil, m.err
	}
	return m.task, nil
}

func (m *mockTaskService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.err
}

func (m *mockTaskService) List(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.tasks, nil
}

func (m *mockTaskService) ListOverdue(ctx context.Context) ([]*models.Task, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.tasks, nil
}

// mockReportService implements services.ReportService for handler tests.
type mockReportService struct {
	overview *services.Overview
	rollups  []repositories.OwnerRollup
	events   []*models.Event
	err      error
}

func (m *mockReportService) Overview(ctx context.Context) (*services.Overview, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.overview, nil
}

func (m *mockReportService) OwnerRollups(ctx context.Context) ([]repositories.OwnerRollup, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rollups, nil
}

func (m *mockReportService) ActivityFeed(ctx context.Context, limit int) ([]*models.Event, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.events, nil
}

package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/relaycrm/outreach-engine/pkg/apperrors"
	"github.com/relaycrm/outreach-engine/pkg/models"
	"github.com/relaycrm/outreach-engine/pkg/repositories"
)

// mockLeadRepo is an in-memory LeadRepository keyed by external key, with
// per-method error injection for failure paths.
type mockLeadRepo struct {
	byID  map[uuid.UUID]*models.Lead
	byKey map[string]*models.Lead

	createErr  error
	getErr     error
	advanceErr error
	upsertErr  error
	updateErr  error

	advanceCalls []models.Stage
	upsertCalls  int
}

func newMockLeadRepo() *mockLeadRepo {
	return &mockLeadRepo{
		byID:  make(map[uuid.UUID]*models.Lead),
		byKey: make(map[string]*models.Lead),
	}
}

func (m *mockLeadRepo) add(lead *models.Lead) *models.Lead {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	m.byID[lead.ID] = lead
	m.byKey[lead.ExternalKey] = lead
	return lead
}

func (m *mockLeadRepo) Create(ctx context.Context, lead *models.Lead) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.byKey[lead.ExternalKey]; exists {
		return apperrors.ErrConflict
	}
	m.add(lead)
	return nil
}

func (m *mockLeadRepo) Get(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	lead, ok := m.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return lead, nil
}

func (m *mockLeadRepo) GetByExternalKey(ctx context.Context, externalKey string) (*models.Lead, error) {
	lead, ok := m.byKey[externalKey]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return lead, nil
}

func (m *mockLeadRepo) List(ctx context.Context, filter models.LeadFilter) ([]*models.Lead, int, error) {
	leads := make([]*models.Lead, 0, len(m.byID))
	for _, lead := range m.byID {
		leads = append(leads, lead)
	}
	return leads, len(leads), nil
}

func (m *mockLeadRepo) Update(ctx context.Context, lead *models.Lead) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.byID[lead.ID]; !ok {
		return apperrors.ErrNotFound
	}
	m.byID[lead.ID] = lead
	m.byKey[lead.ExternalKey] = lead
	return nil
}

func (m *mockLeadRepo) AdvanceStage(ctx context.Context, id uuid.UUID, target models.Stage) (models.Stage, bool, error) {
	m.advanceCalls = append(m.advanceCalls, target)
	if m.advanceErr != nil {
		return "", false, m.advanceErr
	}
	lead, ok := m.byID[id]
	if !ok {
		return "", false, apperrors.ErrNotFound
	}
	if lead.Stage.Before(target) {
		lead.Stage = target
		return target, true, nil
	}
	return lead.Stage, false, nil
}

func (m *mockLeadRepo) SetStage(ctx context.Context, id uuid.UUID, stage models.Stage) (*models.Lead, error) {
	lead, ok := m.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	lead.Stage = stage
	return lead, nil
}

func (m *mockLeadRepo) Upsert(ctx context.Context, record models.LeadRecord, quality models.DataQuality, ownerID uuid.UUID) (*models.Lead, bool, error) {
	m.upsertCalls++
	if m.upsertErr != nil {
		return nil, false, m.upsertErr
	}

	if existing, ok := m.byKey[record.ExternalKey]; ok {
		// Last-non-null-wins merge, mirroring the SQL COALESCE behavior.
		if record.DisplayName != "" {
			existing.DisplayName = record.DisplayName
		}
		if record.RoleTitle != "" {
			existing.RoleTitle = record.RoleTitle
		}
		if record.Organization != "" {
			existing.Organization = record.Organization
		}
		if record.GeoLabel != "" {
			existing.GeoLabel = record.GeoLabel
		}
		if record.TenureMonths != nil {
			existing.TenureMonths = record.TenureMonths
		}
		if record.CampaignTag != "" {
			existing.CampaignTag = record.CampaignTag
		}
		existing.DataQuality = models.DeriveQuality(existing.RoleTitle, existing.Organization)
		return existing, false, nil
	}

	lead := m.add(&models.Lead{
		ExternalKey:  record.ExternalKey,
		DisplayName:  record.DisplayName,
		RoleTitle:    record.RoleTitle,
		Organization: record.Organization,
		GeoLabel:     record.GeoLabel,
		TenureMonths: record.TenureMonths,
		CampaignTag:  record.CampaignTag,
		Stage:        models.StageConnected,
		DataQuality:  quality,
		OwnerID:      ownerID,
	})
	return lead, true, nil
}

var _ repositories.LeadRepository = (*mockLeadRepo)(nil)

// mockEventRepo records appended events in order.
type mockEventRepo struct {
	events    []*models.Event
	createErr error
}

func (m *mockEventRepo) Create(ctx context.Context, event *models.Event) error {
	if m.createErr != nil {
		return m.createErr
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now()
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventRepo) List(ctx context.Context, filter models.EventFilter) ([]*models.Event, error) {
	return m.events, nil
}

var _ repositories.EventRepository = (*mockEventRepo)(nil)

// mockTaskRepo records created tasks in order.
type mockTaskRepo struct {
	tasks     []*models.Task
	createErr error
}

func (m *mockTaskRepo) Create(ctx context.Context, task *models.Task) error {
	if m.createErr != nil {
		return m.createErr
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *mockTaskRepo) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	for _, task := range m.tasks {
		if task.ID == id {
			return task, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockTaskRepo) SetStatus(ctx context.Context, id uuid.UUID, status models.TaskStatus) (*models.Task, error) {
	task, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	task.Status = status
	return task, nil
}

func (m *mockTaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	for i, task := range m.tasks {
		if task.ID == id {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *mockTaskRepo) List(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error) {
	if filter.LeadID == uuid.Nil {
		return m.tasks, nil
	}
	var out []*models.Task
	for _, task := range m.tasks {
		if task.LeadID == filter.LeadID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (m *mockTaskRepo) ListOverdue(ctx context.Context, now time.Time) ([]*models.Task, error) {
	var out []*models.Task
	for _, task := range m.tasks {
		if task.Status == models.TaskOpen && task.DueAt.Before(now) {
			out = append(out, task)
		}
	}
	return out, nil
}

var _ repositories.TaskRepository = (*mockTaskRepo)(nil)

// mockReportRepo returns canned projections.
type mockReportRepo struct {
	totalLeads  int
	stages      map[models.Stage]int
	kinds       map[models.EventKind]int
	overdue     int
	activity    []repositories.ActivityBucket
	rollups     []repositories.OwnerRollup
	totalErr    error
	overdueErr  error
	activityErr error
}

func (m *mockReportRepo) TotalLeads(ctx context.Context) (int, error) {
	if m.totalErr != nil {
		return 0, m.totalErr
	}
	return m.totalLeads, nil
}

func (m *mockReportRepo) StageCounts(ctx context.Context) (map[models.Stage]int, error) {
	return m.stages, nil
}

func (m *mockReportRepo) EventKindCounts(ctx context.Context) (map[models.EventKind]int, error) {
	return m.kinds, nil
}

func (m *mockReportRepo) OverdueTaskCount(ctx context.Context, now time.Time) (int, error) {
	if m.overdueErr != nil {
		return 0, m.overdueErr
	}
	return m.overdue, nil
}

func (m *mockReportRepo) ActivityByDay(ctx context.Context, since time.Time) ([]repositories.ActivityBucket, error) {
	if m.activityErr != nil {
		return nil, m.activityErr
	}
	return m.activity, nil
}

func (m *mockReportRepo) OwnerRollups(ctx context.Context, now time.Time) ([]repositories.OwnerRollup, error) {
	return m.rollups, nil
}

var _ repositories.ReportRepository = (*mockReportRepo)(nil)

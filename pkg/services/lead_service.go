package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaycrm/outreach-engine/pkg/apperrors"
	"github.com/relaycrm/outreach-engine/pkg/models"
	"github.com/relaycrm/outreach-engine/pkg/repositories"
)

// LeadWithTasks pairs a lead with its scheduled follow-ups, for the
// extension's profile lookup.
type LeadWithTasks struct {
	Lead  *models.Lead   `json:"lead"`
	Tasks []*models.Task `json:"tasks"`
}

// LeadService provides single-record lead operations: creation, lookup,
// attribute edits and the administrative stage override.
type LeadService interface {
	Create(ctx context.Context, ownerID uuid.UUID, record models.LeadRecord) (*models.Lead, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	GetByExternalKey(ctx context.Context, externalKey string) (*LeadWithTasks, error)
	List(ctx context.Context, filter models.LeadFilter) ([]*models.Lead, int, error)
	Update(ctx context.Context, id uuid.UUID, update models.LeadUpdate) (*models.Lead, error)

	// OverrideStage sets the stage directly, bypassing the monotonic
	// advance. It exists for administrative correction only and requires a
	// reason, which is logged.
	OverrideStage(ctx context.Context, id uuid.UUID, stage models.Stage, reason string) (*models.Lead, error)
}

type leadService struct {
	leads  repositories.LeadRepository
	tasks  repositories.TaskRepository
	logger *zap.Logger
}

// NewLeadService creates a new LeadService.
func NewLeadService(leads repositories.LeadRepository, tasks repositories.TaskRepository, logger *zap.Logger) LeadService {
	return &leadService{
		leads:  leads,
		tasks:  tasks,
		logger: logger.Named("leads"),
	}
}

var _ LeadService = (*leadService)(nil)

// Create adds a manually entered lead. Unlike ingestion it starts at stage
// New (no connection implied) and an existing external key is a conflict,
// not a merge.
func (s *leadService) Create(ctx context.Context, ownerID uuid.UUID, record models.LeadRecord) (*models.Lead, error) {
	record.ExternalKey = strings.TrimSpace(record.ExternalKey)
	record.DisplayName = strings.TrimSpace(record.DisplayName)
	if err := validateRecord(record); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	lead := &models.Lead{
		ExternalKey:  record.ExternalKey,
		DisplayName:  record.DisplayName,
		RoleTitle:    record.RoleTitle,
		Organization: record.Organization,
		GeoLabel:     record.GeoLabel,
		TenureMonths: record.TenureMonths,
		CampaignTag:  record.CampaignTag,
		Stage:        models.StageNew,
		DataQuality:  models.DeriveQuality(record.RoleTitle, record.Organization),
		OwnerID:      ownerID,
	}
	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}

	return lead, nil
}

// Get retrieves a lead by ID.
func (s *leadService) Get(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	lead, err := s.leads.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

// GetByExternalKey resolves a lead by profile URL along with its tasks.
func (s *leadService) GetByExternalKey(ctx context.Context, externalKey string) (*LeadWithTasks, error) {
	lead, err := s.leads.GetByExternalKey(ctx, externalKey)
	if err != nil {
		return nil, fmt.Errorf("get lead by external key: %w", err)
	}

	tasks, err := s.tasks.List(ctx, models.TaskFilter{LeadID: lead.ID})
	if err != nil {
		return nil, fmt.Errorf("list lead tasks: %w", err)
	}

	return &LeadWithTasks{Lead: lead, Tasks: tasks}, nil
}

// List returns leads matching the filter with the total count.
func (s *leadService) List(ctx context.Context, filter models.LeadFilter) ([]*models.Lead, int, error) {
	leads, total, err := s.leads.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	return leads, total, nil
}

// Update applies an attribute edit. Fields left nil stay untouched; set
// fields are applied verbatim, so an edit can clear a value (unlike the
// ingestion merge). Quality is recomputed from the edited result unless the
// update carries an explicit quality override.
func (s *leadService) Update(ctx context.Context, id uuid.UUID, update models.LeadUpdate) (*models.Lead, error) {
	if update.DataQuality != nil && !update.DataQuality.Valid() {
		return nil, fmt.Errorf("%w: invalid data_quality %q", apperrors.ErrValidation, *update.DataQuality)
	}
	if update.DisplayName != nil && strings.TrimSpace(*update.DisplayName) == "" {
		return nil, fmt.Errorf("%w: display_name cannot be empty", apperrors.ErrValidation)
	}
	if update.TenureMonths != nil && *update.TenureMonths < 0 {
		return nil, fmt.Errorf("%w: negative tenure_months", apperrors.ErrValidation)
	}

	lead, err := s.leads.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}

	if update.DisplayName != nil {
		lead.DisplayName = strings.TrimSpace(*update.DisplayName)
	}
	if update.RoleTitle != nil {
		lead.RoleTitle = *update.RoleTitle
	}
	if update.Organization != nil {
		lead.Organization = *update.Organization
	}
	if update.GeoLabel != nil {
		lead.GeoLabel = *update.GeoLabel
	}
	if update.TenureMonths != nil {
		lead.TenureMonths = update.TenureMonths
	}
	if update.CampaignTag != nil {
		lead.CampaignTag = *update.CampaignTag
	}

	if update.DataQuality != nil {
		lead.DataQuality = *update.DataQuality
	} else {
		lead.DataQuality = models.DeriveQuality(lead.RoleTitle, lead.Organization)
	}

	if err := s.leads.Update(ctx, lead); err != nil {
		return nil, fmt.Errorf("update lead: %w", err)
	}

	return lead, nil
}

// OverrideStage is the one deliberate exception to stage monotonicity.
func (s *leadService) OverrideStage(ctx context.Context, id uuid.UUID, stage models.Stage, reason string) (*models.Lead, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("%w: invalid stage %q", apperrors.ErrValidation, stage)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: stage override requires a reason", apperrors.ErrValidation)
	}

	lead, err := s.leads.SetStage(ctx, id, stage)
	if err != nil {
		return nil, fmt.Errorf("override stage: %w", err)
	}

	s.logger.Warn("Stage overridden administratively",
		zap.String("lead_id", id.String()),
		zap.String("stage", string(stage)),
		zap.String("reason", reason))

	return lead, nil
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaycrm/outreach-engine/pkg/apperrors"
	"github.com/relaycrm/outreach-engine/pkg/models"
	"github.com/relaycrm/outreach-engine/pkg/repositories"
)

// NewEvent is one inbound interaction, already shape-validated by the
// transport layer.
type NewEvent struct {
	LeadID     uuid.UUID
	ActorID    uuid.UUID
	Kind       models.EventKind
	Metadata   map[string]any
	OccurredAt time.Time
}

// EventResult is what processing one event produced.
type EventResult struct {
	Event        *models.Event `json:"event"`
	StageAfter   models.Stage  `json:"stage_after"`
	StageChanged bool          `json:"stage_changed"`
	TaskCreated  *models.Task  `json:"task_created,omitempty"`
}

// PipelineService consumes interaction events, advances lead stage through
// the monotonic funnel and schedules follow-up tasks per the transition
// rules.
type PipelineService interface {
	ProcessEvent(ctx context.Context, event NewEvent) (*EventResult, error)
	ListEvents(ctx context.Context, filter models.EventFilter) ([]*models.Event, error)
}

type pipelineService struct {
	leads  repositories.LeadRepository
	events repositories.EventRepository
	tasks  repositories.TaskRepository
	rules  *TransitionRules
	logger *zap.Logger
	now    func() time.Time
}

// NewPipelineService creates a new PipelineService with the given rule table.
func NewPipelineService(
	leads repositories.LeadRepository,
	events repositories.EventRepository,
	tasks repositories.TaskRepository,
	rules *TransitionRules,
	logger *zap.Logger,
) PipelineService {
	return &pipelineService{
		leads:  leads,
		events: events,
		tasks:  tasks,
		rules:  rules,
		logger: logger.Named("pipeline"),
		now:    time.Now,
	}
}

var _ PipelineService = (*pipelineService)(nil)

// ProcessEvent runs one event through the pipeline:
//
//  1. the lead must exist and the kind must have a rule;
//  2. the event is appended to the log unconditionally;
//  3. the stage advances only if the rule's target is further along the
//     funnel than the lead's current stage (replayed or out-of-order events
//     never move a lead backward);
//  4. if the rule carries a task template, exactly one follow-up task is
//     scheduled per event, whether or not the stage moved.
func (s *pipelineService) ProcessEvent(ctx context.Context, event NewEvent) (*EventResult, error) {
	if _, err := s.leads.Get(ctx, event.LeadID); err != nil {
		return nil, fmt.Errorf("resolve lead %s: %w", event.LeadID, err)
	}

	rule, ok := s.rules.Lookup(event.Kind)
	if !ok {
		return nil, fmt.Errorf("event kind %q: %w", event.Kind, apperrors.ErrUnknownEventKind)
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}

	record := &models.Event{
		LeadID:     event.LeadID,
		ActorID:    event.ActorID,
		Kind:       event.Kind,
		Metadata:   event.Metadata,
		OccurredAt: occurredAt,
	}
	if err := s.events.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}

	stageAfter, changed, err := s.leads.AdvanceStage(ctx, event.LeadID, rule.TargetStage)
	if err != nil {
		return nil, fmt.Errorf("advance stage: %w", err)
	}

	result := &EventResult{
		Event:        record,
		StageAfter:   stageAfter,
		StageChanged: changed,
	}

	// Follow-up scheduling is driven by the event, not the stage change:
	// a repeated invite_sent still schedules a fresh follow-up.
	if rule.Task != nil {
		task := &models.Task{
			LeadID:  event.LeadID,
			OwnerID: event.ActorID,
			Label:   rule.Task.Label,
			DueAt:   s.now().Add(rule.Task.DueOffset),
			Status:  models.TaskOpen,
		}
		if err := s.tasks.Create(ctx, task); err != nil {
			return nil, fmt.Errorf("schedule follow-up task: %w", err)
		}
		result.TaskCreated = task
	}

	s.logger.Debug("Processed event",
		zap.String("lead_id", event.LeadID.String()),
		zap.String("kind", string(event.Kind)),
		zap.String("stage_after", string(result.StageAfter)),
		zap.Bool("stage_changed", result.StageChanged),
		zap.Bool("task_created", result.TaskCreated != nil))

	return result, nil
}

// ListEvents returns events from the append-only log.
func (s *pipelineService) ListEvents(ctx context.Context, filter models.EventFilter) ([]*models.Event, error) {
	events, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

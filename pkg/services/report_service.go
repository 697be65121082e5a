package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/relaycrm/outreach-engine/pkg/models"
	"github.com/relaycrm/outreach-engine/pkg/repositories"
)

// Overview is the dashboard's high-level pipeline snapshot.
type Overview struct {
	TotalLeads     int                           `json:"total_leads"`
	Stages         map[models.Stage]int          `json:"stages"`
	Events         map[models.EventKind]int      `json:"events"`
	AcceptanceRate float64                       `json:"acceptance_rate"`
	ReplyRate      float64                       `json:"reply_rate"`
	Meetings       int                           `json:"meetings"`
	OverdueTasks   int                           `json:"overdue_tasks"`
	RecentActivity []repositories.ActivityBucket `json:"recent_activity"`
}

// ReportService serves read-only projections over engine state. It reads
// what the write path produced but takes no part in its invariants.
type ReportService interface {
	Overview(ctx context.Context) (*Overview, error)
	OwnerRollups(ctx context.Context) ([]repositories.OwnerRollup, error)
	ActivityFeed(ctx context.Context, limit int) ([]*models.Event, error)
}

type reportService struct {
	reports repositories.ReportRepository
	events  repositories.EventRepository
	logger  *zap.Logger
	now     func() time.Time
}

// NewReportService creates a new ReportService.
func NewReportService(reports repositories.ReportRepository, events repositories.EventRepository, logger *zap.Logger) ReportService {
	return &reportService{
		reports: reports,
		events:  events,
		logger:  logger.Named("reports"),
		now:     time.Now,
	}
}

var _ ReportService = (*reportService)(nil)

func (s *reportService) Overview(ctx context.Context) (*Overview, error) {
	now := s.now()

	total, err := s.reports.TotalLeads(ctx)
	if err != nil {
		return nil, fmt.Errorf("total leads: %w", err)
	}

	stages, err := s.reports.StageCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("stage counts: %w", err)
	}

	events, err := s.reports.EventKindCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("event counts: %w", err)
	}

	overdue, err := s.reports.OverdueTaskCount(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("overdue count: %w", err)
	}

	activity, err := s.reports.ActivityByDay(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}

	return &Overview{
		TotalLeads:     total,
		Stages:         stages,
		Events:         events,
		AcceptanceRate: ratePercent(events[models.EventConnected], events[models.EventInviteSent]),
		ReplyRate:      ratePercent(events[models.EventReplyReceived], events[models.EventMessageSent]),
		Meetings:       events[models.EventMeetingBooked],
		OverdueTasks:   overdue,
		RecentActivity: activity,
	}, nil
}

func (s *reportService) OwnerRollups(ctx context.Context) ([]repositories.OwnerRollup, error) {
	rollups, err := s.reports.OwnerRollups(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("owner rollups: %w", err)
	}
	return rollups, nil
}

func (s *reportService) ActivityFeed(ctx context.Context, limit int) ([]*models.Event, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	events, err := s.events.List(ctx, models.EventFilter{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("activity feed: %w", err)
	}
	return events, nil
}

// ratePercent returns hits/attempts as a percentage rounded to one decimal.
func ratePercent(hits, attempts int) float64 {
	if attempts == 0 {
		return 0
	}
	return math.Round(float64(hits)/float64(attempts)*1000) / 10
}

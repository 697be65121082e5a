package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaycrm/outreach-engine/pkg/models"
	"github.com/relaycrm/outreach-engine/pkg/repositories"
)

// IngestOutcome classifies what happened to one record of a batch. Skips
// are counted and logged, never silently swallowed.
type IngestOutcome int

const (
	IngestCreated IngestOutcome = iota
	IngestUpdated
	IngestSkipped
)

// IngestSummary aggregates per-record outcomes for the caller.
type IngestSummary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

// IngestService bulk-ingests externally observed contact records:
// deduplication by external key, non-destructive field merge and data
// quality reclassification.
type IngestService interface {
	// IngestBatch processes each record independently; one bad record never
	// aborts the batch. On context cancellation the loop stops and the
	// summary covers the records committed so far - partial completion is
	// the designed outcome, not an error.
	IngestBatch(ctx context.Context, ownerID uuid.UUID, records []models.LeadRecord) (IngestSummary, error)
}

type ingestService struct {
	leads  repositories.LeadRepository
	logger *zap.Logger
}

// NewIngestService creates a new IngestService.
func NewIngestService(leads repositories.LeadRepository, logger *zap.Logger) IngestService {
	return &ingestService{
		leads:  leads,
		logger: logger.Named("ingest"),
	}
}

var _ IngestService = (*ingestService)(nil)

func (s *ingestService) IngestBatch(ctx context.Context, ownerID uuid.UUID, records []models.LeadRecord) (IngestSummary, error) {
	summary := IngestSummary{Total: len(records)}

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			// Caller cancelled mid-batch. Everything ingested so far stays
			// committed; report honest partial counts.
			s.logger.Warn("Batch ingestion cancelled",
				zap.Int("processed", i),
				zap.Int("total", len(records)))
			return summary, nil
		}

		outcome := s.ingestRecord(ctx, ownerID, i, record)
		switch outcome {
		case IngestCreated:
			summary.Created++
		case IngestUpdated:
			summary.Updated++
		case IngestSkipped:
			summary.Skipped++
		}
	}

	s.logger.Info("Batch ingestion complete",
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("total", summary.Total))

	return summary, nil
}

func (s *ingestService) ingestRecord(ctx context.Context, ownerID uuid.UUID, index int, record models.LeadRecord) IngestOutcome {
	record.ExternalKey = strings.TrimSpace(record.ExternalKey)
	record.DisplayName = strings.TrimSpace(record.DisplayName)

	if err := validateRecord(record); err != nil {
		s.logger.Warn("Skipping invalid record",
			zap.Int("index", index),
			zap.Error(err))
		return IngestSkipped
	}

	quality := models.DeriveQuality(record.RoleTitle, record.Organization)

	_, inserted, err := s.leads.Upsert(ctx, record, quality, ownerID)
	if err != nil {
		// A failed store write for one record counts as skipped; the batch
		// carries on. The engine performs no retries.
		s.logger.Error("Failed to upsert record",
			zap.Int("index", index),
			zap.String("external_key", record.ExternalKey),
			zap.Error(err))
		return IngestSkipped
	}

	if inserted {
		return IngestCreated
	}
	return IngestUpdated
}

func validateRecord(record models.LeadRecord) error {
	if record.ExternalKey == "" {
		return fmt.Errorf("missing external_key")
	}
	if record.DisplayName == "" {
		return fmt.Errorf("missing display_name")
	}
	if record.TenureMonths != nil && *record.TenureMonths < 0 {
		return fmt.Errorf("negative tenure_months")
	}
	return nil
}

package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/relaycrm/outreach-engine/pkg/database"
	"github.com/relaycrm/outreach-engine/pkg/models"
)

// EventRepository defines the interface for the append-only event log.
// There is no update or delete: every valid interaction is recorded once
// and kept forever.
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	List(ctx context.Context, filter models.EventFilter) ([]*models.Event, error)
}

type eventRepository struct {
	db database.Querier
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db database.Querier) EventRepository {
	return &eventRepository{db: db}
}

// Create appends an event to the log.
func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshal event metadata: %w", err)
	}

	query := `
		INSERT INTO events (id, lead_id, actor_id, kind, metadata, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err = r.db.QueryRow(ctx, query,
		event.ID,
		event.LeadID,
		uuidOrNil(event.ActorID),
		event.Kind,
		metadata,
		event.OccurredAt,
	).Scan(&event.CreatedAt)
	if err != nil {
		return storeFailure("create event", err)
	}

	return nil
}

// List returns events matching the filter, newest first.
func (r *eventRepository) List(ctx context.Context, filter models.EventFilter) ([]*models.Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	query := `
		SELECT id, lead_id, COALESCE(actor_id, '00000000-0000-0000-0000-000000000000'::uuid),
		       kind, metadata, occurred_at, created_at
		FROM events
		WHERE ($1::uuid IS NULL OR lead_id = $1)
		  AND ($2::uuid IS NULL OR actor_id = $2)
		  AND ($3 = '' OR kind = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`

	rows, err := r.db.Query(ctx, query,
		uuidOrNil(filter.LeadID), uuidOrNil(filter.ActorID), string(filter.Kind), limit, offset)
	if err != nil {
		return nil, storeFailure("list events", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var event models.Event
		var metadata []byte
		if err := rows.Scan(
			&event.ID,
			&event.LeadID,
			&event.ActorID,
			&event.Kind,
			&metadata,
			&event.OccurredAt,
			&event.CreatedAt,
		); err != nil {
			return nil, storeFailure("scan event", err)
		}
		if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal event metadata: %w", err)
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFailure("list events", err)
	}

	return events, nil
}

var _ EventRepository = (*eventRepository)(nil)

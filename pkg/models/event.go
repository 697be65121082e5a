package models

import (
	"time"

	"github.com/google/uuid"
)

// EventKind identifies one of the five known interaction kinds.
type EventKind string

const (
	EventInviteSent    EventKind = "invite_sent"
	EventConnected     EventKind = "connected"
	EventMessageSent   EventKind = "message_sent"
	EventReplyReceived EventKind = "reply_received"
	EventMeetingBooked EventKind = "meeting_booked"
)

// KnownEventKinds lists every kind the transport layer accepts.
var KnownEventKinds = []EventKind{
	EventInviteSent,
	EventConnected,
	EventMessageSent,
	EventReplyReceived,
	EventMeetingBooked,
}

// Valid reports whether k is one of the known event kinds.
func (k EventKind) Valid() bool {
	for _, known := range KnownEventKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Event is an immutable record of one interaction with a lead. Events are
// an append-only log; they are never edited or deleted.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	LeadID     uuid.UUID      `json:"lead_id"`
	ActorID    uuid.UUID      `json:"actor_id"`
	Kind       EventKind      `json:"kind"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	CreatedAt  time.Time      `json:"created_at"`
}

// EventFilter narrows event listings.
type EventFilter struct {
	LeadID  uuid.UUID
	ActorID uuid.UUID
	Kind    EventKind
	Page    int
	Limit   int
}

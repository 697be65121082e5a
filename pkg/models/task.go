package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is a follow-up task's state. The only transitions are
// open -> done and done -> open (explicit reopen).
type TaskStatus string

const (
	TaskOpen TaskStatus = "open"
	TaskDone TaskStatus = "done"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	return s == TaskOpen || s == TaskDone
}

// Task is a scheduled follow-up action tied to a lead. Tasks are created
// directly or as a side effect of the pipeline processing an event. A task
// is overdue when it is still open past its due time; overdue is computed
// at read time, never by a timer.
type Task struct {
	ID        uuid.UUID  `json:"id"`
	LeadID    uuid.UUID  `json:"lead_id"`
	OwnerID   uuid.UUID  `json:"owner_id"`
	Label     string     `json:"label"`
	DueAt     time.Time  `json:"due_at"`
	Status    TaskStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	LeadID  uuid.UUID
	OwnerID uuid.UUID
	Status  TaskStatus
	Page    int
	Limit   int
}

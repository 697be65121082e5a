package models

import (
	"time"

	"github.com/google/uuid"
)

// Role constants for users.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User is an actor who records interactions and owns leads and tasks.
// Ownership is advisory, not an access-control boundary.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

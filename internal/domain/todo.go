package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a Todo.
type Status string

const (
	StatusNotCompleted Status = "NOT_COMPLETED"
	StatusCompleted    Status = "COMPLETED"
	StatusArchived     Status = "ARCHIVED"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNotCompleted, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// CanTransitionTo reports whether a todo in status s may be set to next.
// NOT_COMPLETED and COMPLETED toggle freely (rewriting the current status
// is a permitted no-op); ARCHIVED is reachable only from COMPLETED and is
// terminal, so a repeated archive attempt is invalid.
func (s Status) CanTransitionTo(next Status) bool {
	if s == StatusArchived {
		return false
	}
	if next == StatusArchived {
		return s == StatusCompleted
	}
	return next == StatusNotCompleted || next == StatusCompleted
}

// Todo is the domain entity. It does not depend on Gin, Postgres or Redis.
type Todo struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Title       string
	Description string
	Status      Status
	Deadline    time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

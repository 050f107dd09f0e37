package models

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID        int64
	PID       uuid.UUID
	UserPID   uuid.UUID
	Title     string
	Done      bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskPatch carries the fields of a partial update. Nil fields keep their
// stored value.
type TaskPatch struct {
	Title *string
	Done  *bool
}

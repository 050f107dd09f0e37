package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered credential. PasswordHash is an Argon2id PHC string
// and is never serialised.
type User struct {
	ID           int64
	PID          uuid.UUID
	Username     string
	Email        string
	PasswordHash string `json:"-"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

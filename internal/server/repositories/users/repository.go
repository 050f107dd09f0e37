package users

import (
	"context"

	"github.com/dmitrijs2005/tasktracker/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByPID(ctx context.Context, pid uuid.UUID) (*models.User, error)
}

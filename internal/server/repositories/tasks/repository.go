package tasks

import (
	"context"

	"github.com/dmitrijs2005/tasktracker/internal/server/models"
	"github.com/google/uuid"
)

// Repository is the SQL layer for tasks. It performs no ownership checks of
// its own beyond the owner predicates in FindAll and FindOne.
type Repository interface {
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	FindAll(ctx context.Context, owner uuid.UUID) ([]models.Task, error)
	FindOne(ctx context.Context, owner uuid.UUID, id int64) (*models.Task, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Task, error)
	Update(ctx context.Context, id int64, patch models.TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tasktracker/internal/common"
	"github.com/dmitrijs2005/tasktracker/internal/dbx"
	"github.com/dmitrijs2005/tasktracker/internal/logging"
	"github.com/dmitrijs2005/tasktracker/internal/server/models"
	"github.com/dmitrijs2005/tasktracker/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// TaskService performs task CRUD on behalf of a verified owner.
//
// Update and Delete run fetch, ownership check and mutation inside one
// read-committed transaction, with the row locked by SELECT ... FOR UPDATE,
// so the check and the write see the same row.
type TaskService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewTaskService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *TaskService {
	return &TaskService{db: db, repomanager: m, logger: logger.With("module", "tasks")}
}

// Create stores a task owned by owner. An owner unknown to storage yields
// common.ErrUnauthorised.
func (s *TaskService) Create(ctx context.Context, owner uuid.UUID, title string, done bool) (*models.Task, error) {
	task := &models.Task{PID: uuid.New(), UserPID: owner, Title: title, Done: done}

	return dbx.InTx(ctx, s.db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) (*models.Task, error) {
		return s.repomanager.Tasks(tx).Create(ctx, task)
	})
}

// FindAll lists owner's tasks only.
func (s *TaskService) FindAll(ctx context.Context, owner uuid.UUID) ([]models.Task, error) {
	return s.repomanager.Tasks(s.db).FindAll(ctx, owner)
}

// FindOne returns common.ErrEntityNotFound both for a missing id and for a
// task owned by someone else.
func (s *TaskService) FindOne(ctx context.Context, owner uuid.UUID, id int64) (*models.Task, error) {
	return s.repomanager.Tasks(s.db).FindOne(ctx, owner, id)
}

// Update applies patch to task id if owner owns it. A task owned by someone
// else fails with common.ErrNotOwner before anything is written.
func (s *TaskService) Update(ctx context.Context, owner uuid.UUID, id int64, patch models.TaskPatch) (*models.Task, error) {
	updated, err := dbx.InTx(ctx, s.db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) (*models.Task, error) {
		repo := s.repomanager.Tasks(tx)

		if err := s.checkOwner(ctx, repo, owner, id); err != nil {
			return nil, err
		}
		return repo.Update(ctx, id, patch)
	})
	if err != nil {
		return nil, s.observe(ctx, "update", owner, id, err)
	}
	return updated, nil
}

// Delete removes task id if owner owns it and returns the affected row count.
// Affecting more than one row rolls the transaction back with common.ErrDatabase.
func (s *TaskService) Delete(ctx context.Context, owner uuid.UUID, id int64) (int64, error) {
	affected, err := dbx.InTx(ctx, s.db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) (int64, error) {
		repo := s.repomanager.Tasks(tx)

		if err := s.checkOwner(ctx, repo, owner, id); err != nil {
			return 0, err
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return 0, s.observe(ctx, "delete", owner, id, err)
	}
	return affected, nil
}

type ownerLookup interface {
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Task, error)
}

func (s *TaskService) checkOwner(ctx context.Context, repo ownerLookup, owner uuid.UUID, id int64) error {
	task, err := repo.GetByIDForUpdate(ctx, id)
	if err != nil {
		return err
	}
	if task.UserPID != owner {
		return common.ErrNotOwner
	}
	return nil
}

// observe logs ownership denials and consistency failures and passes err on.
func (s *TaskService) observe(ctx context.Context, op string, owner uuid.UUID, id int64, err error) error {
	switch {
	case errors.Is(err, common.ErrNotOwner):
		s.logger.Warn(ctx, "ownership denied", "op", op, "task_id", id, "caller", owner)
	case errors.Is(err, common.ErrDatabase):
		s.logger.Error(ctx, "consistency check failed, transaction rolled back", "op", op, "task_id", id, "error", err)
	case errors.Is(err, common.ErrEntityNotFound):
	default:
		return fmt.Errorf("%s task: %w", op, err)
	}
	return err
}

package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tasktracker/internal/common"
	"github.com/dmitrijs2005/tasktracker/internal/dbx"
	"github.com/dmitrijs2005/tasktracker/internal/server/models"
	"github.com/dmitrijs2005/tasktracker/internal/server/repositories/pgerr"
	"github.com/google/uuid"
)

const taskColumns = `id, pid, user_pid, title, done, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts task. An owner that does not exist violates the foreign key
// and is reported as common.ErrUnauthorised.
func (r *PostgresRepository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	query :=
		`INSERT INTO tasks (pid, user_pid, title, done)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		task.PID, task.UserPID, task.Title, task.Done).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)

	if err != nil {
		if pgerr.IsForeignKeyViolation(err) {
			return nil, common.ErrUnauthorised
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return task, nil
}

func (r *PostgresRepository) FindAll(ctx context.Context, owner uuid.UUID) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_pid = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}

// FindOne filters by owner in the predicate, so another owner's task looks
// exactly like a missing one.
func (r *PostgresRepository) FindOne(ctx context.Context, owner uuid.UUID, id int64) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND user_pid = $2`
	return r.queryOne(ctx, query, id, owner)
}

// GetByIDForUpdate locks the row for the rest of the surrounding transaction.
func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 FOR UPDATE`
	return r.queryOne(ctx, query, id)
}

// Update applies the non-nil fields of patch and refreshes updated_at.
// More than one matching row is a consistency failure.
func (r *PostgresRepository) Update(ctx context.Context, id int64, patch models.TaskPatch) (*models.Task, error) {
	query :=
		`UPDATE tasks
		 SET title = COALESCE($2, title), done = COALESCE($3, done), updated_at = now()
		 WHERE id = $1
		 RETURNING ` + taskColumns

	rows, err := r.db.QueryContext(ctx, query, id, patch.Title, patch.Done)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var updated *models.Task
	var n int64
	for rows.Next() {
		n++
		if updated, err = scanTask(rows); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	switch n {
	case 1:
		return updated, nil
	case 0:
		return nil, common.ErrEntityNotFound
	default:
		return nil, fmt.Errorf("%w: unexpected rows affected: %d", common.ErrDatabase, n)
	}
}

// Delete removes the task with id and returns the number of rows removed.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return n, nil
	case 0:
		return 0, common.ErrEntityNotFound
	default:
		return n, fmt.Errorf("%w: unexpected rows affected: %d", common.ErrDatabase, n)
	}
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...any) (*models.Task, error) {
	task, err := scanTask(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrEntityNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return task, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*models.Task, error) {
	t := &models.Task{}
	if err := s.Scan(&t.ID, &t.PID, &t.UserPID, &t.Title, &t.Done, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

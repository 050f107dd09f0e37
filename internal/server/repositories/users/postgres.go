package users

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

// Unique constraints on the users table, see migrations.
const (
	constraintUsername = "users_username_key"
	constraintEmail    = "users_email_key"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts user and fills in its generated id and timestamps.
// Duplicate usernames and emails come back as common.ErrUsernameTaken and
// common.ErrEmailExists.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (pid, username, email, password)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.PID, user.Username, user.Email, user.PasswordHash).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if constraint, ok := pgerr.Constraint(err, pgerr.UniqueViolation); ok {
			switch constraint {
			case constraintUsername:
				return nil, common.ErrUsernameTaken
			case constraintEmail:
				return nil, common.ErrEmailExists
			}
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const selectUser = `SELECT id, pid, username, email, password, created_at, updated_at FROM users`

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, selectUser+` WHERE email = $1`, email)
}

func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, selectUser+` WHERE username = $1`, username)
}

func (r *PostgresRepository) FindByPID(ctx context.Context, pid uuid.UUID) (*models.User, error) {
	return r.findOne(ctx, selectUser+` WHERE pid = $1`, pid)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.PID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrEntityNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// Package services contains server-side business logic. This file implements
// UserService, the credential store: registration, login and lookups.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tasktracker/internal/common"
	"github.com/dmitrijs2005/tasktracker/internal/dbx"
	"github.com/dmitrijs2005/tasktracker/internal/logging"
	"github.com/dmitrijs2005/tasktracker/internal/server/auth"
	"github.com/dmitrijs2005/tasktracker/internal/server/models"
	"github.com/dmitrijs2005/tasktracker/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// PasswordHasher hashes and verifies passwords off the request goroutine's
// budget. *cryptox.Hasher implements it.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, encoded string) (bool, error)
	VerifyDummy(ctx context.Context, password string) error
}

// UserService provides credential operations:
// - Register: create users with a salted Argon2id hash
// - Login: verify credentials and build token claims
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	lifetime    time.Duration
	now         func() time.Time
	logger      logging.Logger
}

// NewUserService constructs a UserService. lifetime is the validity of the
// claims returned by Login.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher, lifetime time.Duration, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		lifetime:    lifetime,
		now:         time.Now,
		logger:      logger.With("module", "users"),
	}
}

// Register hashes password and stores a new credential. Duplicate usernames
// and emails fail with common.ErrUsernameTaken and common.ErrEmailExists.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		PID:          uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}

	user, err = dbx.InTx(ctx, s.db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) (*models.User, error) {
		return s.repomanager.Users(tx).Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, common.ErrUsernameTaken) || errors.Is(err, common.ErrEmailExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "pid", user.PID)
	return user, nil
}

// Login checks email and password and returns claims for the matching user.
// An unknown email and a wrong password both yield common.ErrUnauthorised
// after the same amount of hashing work.
func (s *UserService) Login(ctx context.Context, email, password string) (auth.Claims, *models.User, error) {
	user, err := s.repomanager.Users(s.db).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrEntityNotFound) {
			if err := s.hasher.VerifyDummy(ctx, password); err != nil {
				return auth.Claims{}, nil, err
			}
			return auth.Claims{}, nil, common.ErrUnauthorised
		}
		return auth.Claims{}, nil, fmt.Errorf("find user: %w", err)
	}

	ok, err := s.hasher.Verify(ctx, password, user.PasswordHash)
	if err != nil {
		return auth.Claims{}, nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return auth.Claims{}, nil, common.ErrUnauthorised
	}

	return auth.NewClaims(user.PID, s.now(), s.lifetime), user, nil
}

// FindByPID returns the user with the given public id.
func (s *UserService) FindByPID(ctx context.Context, pid uuid.UUID) (*models.User, error) {
	return s.repomanager.Users(s.db).FindByPID(ctx, pid)
}

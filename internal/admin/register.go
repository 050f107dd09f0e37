package admin

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/tasktracker/internal/common"
	"github.com/dmitrijs2005/tasktracker/internal/cryptox"
	"github.com/dmitrijs2005/tasktracker/internal/logging"
	"github.com/dmitrijs2005/tasktracker/internal/server/api"
	"github.com/dmitrijs2005/tasktracker/internal/server/config"
	"github.com/dmitrijs2005/tasktracker/internal/server/models"
	"github.com/dmitrijs2005/tasktracker/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tasktracker/internal/server/services"
)

type registrar interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
}

// openRegistrar connects to the configured database. It is a seam for tests.
var openRegistrar = func(ctx context.Context, c *config.Config) (registrar, io.Closer, error) {
	db, err := repomanager.Open(ctx, c.DatabaseDSN, repomanager.PoolOptions{
		MaxOpenConns:   1,
		MaxIdleConns:   1,
		ConnectTimeout: c.DBConnectTimeout,
	})
	if err != nil {
		return nil, nil, err
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if c.MigrateOnStart {
		if err := rm.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migration error: %w", err)
		}
	}

	logger, err := logging.New(c.LogLevel, "text", os.Stderr)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	hasher := cryptox.NewHasher(1, cryptox.DefaultParams)
	return services.NewUserService(db, rm, hasher, c.TokenLifetime, logger), db, nil
}

// register prompts for account details and stores the user directly,
// applying the same validation as the HTTP endpoint.
func (a *App) register(ctx context.Context, args []string) error {
	cfg, err := config.LoadConfig(args)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	username, err := GetSimpleText(a.in, "Username", a.out)
	if err != nil {
		return err
	}
	email, err := GetSimpleText(a.in, "Email", a.out)
	if err != nil {
		return err
	}

	pw, err := GetPassword(a.ttyFD, "Password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	confirm, err := GetPassword(a.ttyFD, "Confirm password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	req := api.RegisterRequest{
		Username:        username,
		Email:           email,
		Password:        string(pw),
		ConfirmPassword: string(confirm),
	}
	if err := req.Validate(); err != nil {
		return err
	}

	reg, closer, err := openRegistrar(ctx, cfg)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer closer.Close()

	user, err := reg.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Registered %s (%s)\n", user.Username, user.PID)
	return nil
}

// Package api exposes the task tracker over HTTP/JSON using chi.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/tasktracker/internal/logging"
	"github.com/dmitrijs2005/tasktracker/internal/observability"
	"github.com/dmitrijs2005/tasktracker/internal/server/auth"
	"github.com/dmitrijs2005/tasktracker/internal/server/models"
	"github.com/google/uuid"
)

// UserService is the credential store used by the auth handlers.
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (auth.Claims, *models.User, error)
	FindByPID(ctx context.Context, pid uuid.UUID) (*models.User, error)
}

// TaskService is the owner-scoped task store used by the task handlers.
type TaskService interface {
	Create(ctx context.Context, owner uuid.UUID, title string, done bool) (*models.Task, error)
	FindAll(ctx context.Context, owner uuid.UUID) ([]models.Task, error)
	FindOne(ctx context.Context, owner uuid.UUID, id int64) (*models.Task, error)
	Update(ctx context.Context, owner uuid.UUID, id int64, patch models.TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, owner uuid.UUID, id int64) (int64, error)
}

// TokenEncoder signs claims into a bearer token.
type TokenEncoder interface {
	Encode(claims auth.Claims) (string, error)
}

// TokenDecoder verifies a bearer token and returns its claims.
type TokenDecoder interface {
	Decode(token string) (auth.Claims, error)
}

// TokenCodec is satisfied by *auth.TokenCodec.
type TokenCodec interface {
	TokenEncoder
	TokenDecoder
}

// Options tune the underlying http.Server.
type Options struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type HTTPServer struct {
	address string
	opts    Options
	users   UserService
	tasks   TaskService
	codec   TokenCodec
	metrics *observability.Metrics
	logger  logging.Logger
}

func NewHTTPServer(a string, opts Options, l logging.Logger, m *observability.Metrics, us UserService, ts TaskService, codec TokenCodec) *HTTPServer {
	return &HTTPServer{
		address: a,
		opts:    opts,
		logger:  l.With("module", "http_server"),
		metrics: m,
		users:   us,
		tasks:   ts,
		codec:   codec,
	}
}

// Run listens on the configured address and serves until ctx is cancelled,
// then drains in-flight requests within ShutdownTimeout.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *HTTPServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:      s.Router(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx := context.WithoutCancel(ctx)
		if s.opts.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, s.opts.ShutdownTimeout)
			defer cancel()
		}
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-stopped
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router builds the chi handler tree. Everything under /api/tasks and
// /api/auth/me requires a bearer token.
func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.metrics.Middleware)
	r.Use(bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(s.codec, s.logger, s.metrics))

			r.Get("/auth/me", s.handleMe)

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", s.handleCreateTask)
				r.Get("/", s.handleListTasks)
				r.Get("/{id}", s.handleGetTask)
				r.Patch("/{id}", s.handleUpdateTask)
				r.Delete("/{id}", s.handleDeleteTask)
			})
		})
	})

	return r
}

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/tasktracker/internal/common"
	"github.com/dmitrijs2005/tasktracker/internal/server/auth"
	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
)

// caller returns the authenticated user's id. Authenticate guarantees it is
// present on every route that calls this.
func caller(r *http.Request) (uuid.UUID, error) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return uuid.Nil, common.ErrUnauthorised
	}
	return id.CallerID, nil
}

func taskID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, validation.Errors{"id": errors.New("must be a positive integer")}
	}
	return id, nil
}

func (s *HTTPServer) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	owner, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req CreateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	task, err := s.tasks.Create(r.Context(), owner, req.Title, req.Done)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTaskResponse(task))
}

func (s *HTTPServer) handleListTasks(w http.ResponseWriter, r *http.Request) {
	owner, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	list, err := s.tasks.FindAll(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := make([]TaskResponse, 0, len(list))
	for i := range list {
		resp = append(resp, newTaskResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleGetTask(w http.ResponseWriter, r *http.Request) {
	owner, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := taskID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	task, err := s.tasks.FindOne(r.Context(), owner, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTaskResponse(task))
}

func (s *HTTPServer) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	owner, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := taskID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req UpdateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	task, err := s.tasks.Update(r.Context(), owner, id, req.patch())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTaskResponse(task))
}

func (s *HTTPServer) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	owner, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := taskID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if _, err := s.tasks.Delete(r.Context(), owner, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

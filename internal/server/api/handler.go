package api

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/tasktracker/internal/common"
	"github.com/dmitrijs2005/tasktracker/internal/server/auth"
)

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Server is up and running"})
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "Registered", "user", user.PID)
	writeJSON(w, http.StatusCreated, RegisterResponse{Message: "Account created successfully", PID: user.PID})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	claims, user, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	token, err := s.codec.Encode(claims)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set(common.AuthorizationHeaderName, common.BearerScheme+" "+token)
	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
		ExpiresAt: claims.ExpiresAt,
	})
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		s.writeError(w, r, common.ErrUnauthorised)
		return
	}

	user, err := s.users.FindByPID(r.Context(), claims.Subject)
	if err != nil {
		// A valid token for a deleted account.
		if errors.Is(err, common.ErrEntityNotFound) {
			err = common.ErrUnauthorised
		}
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{
		PID:       user.PID,
		Username:  user.Username,
		Email:     user.Email,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
	})
}

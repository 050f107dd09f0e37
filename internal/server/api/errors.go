package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/tasktracker/internal/common"
	"github.com/dmitrijs2005/tasktracker/internal/logging"
	"github.com/dmitrijs2005/tasktracker/internal/observability"
	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	msgNotFound      = "Entity not found"
	msgUnauthorised  = "Unauthorised"
	msgMissingCreds  = "Missing credentials"
	msgWrongCreds    = "Wrong credentials"
	msgExpiredToken  = "Expired token"
	msgInvalidToken  = "Invalid token"
	msgUsernameTaken = "Username already taken"
	msgEmailExists   = "Email already exists"
	msgValidation    = "Validation failed"
	msgMalformedBody = "Malformed request body"
	msgInternal      = "Internal server error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Message string            `json:"message"`
	Errors  validation.Errors `json:"errors,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Message: msg})
}

// errMalformedBody marks a request body that is not the expected JSON.
var errMalformedBody = errors.New("malformed request body")

// statusFor maps a service error to its HTTP status and client message.
// ErrNotOwner is reported as not found so that task ids owned by others are
// indistinguishable from missing ones.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrEntityNotFound), errors.Is(err, common.ErrNotOwner):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, common.ErrMissingCredentials):
		return http.StatusUnauthorized, msgMissingCreds
	case errors.Is(err, common.ErrWrongCredentials):
		return http.StatusUnauthorized, msgWrongCreds
	case errors.Is(err, common.ErrUnauthorised):
		return http.StatusUnauthorized, msgUnauthorised
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, msgExpiredToken
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenImmature):
		return http.StatusForbidden, msgInvalidToken
	case errors.Is(err, common.ErrUsernameTaken):
		return http.StatusConflict, msgUsernameTaken
	case errors.Is(err, common.ErrEmailExists):
		return http.StatusConflict, msgEmailExists
	case errors.Is(err, errMalformedBody):
		return http.StatusUnprocessableEntity, msgMalformedBody
	case errors.Is(err, common.ErrValidation):
		return http.StatusUnprocessableEntity, msgValidation
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// writeError renders err. Internal failures are logged with their detail and
// answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, logger logging.Logger, metrics *observability.Metrics, err error) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Message: msgValidation, Errors: verrs})
		return
	}

	status, msg := statusFor(err)

	if errors.Is(err, common.ErrNotOwner) && metrics != nil {
		metrics.OwnershipDenialsTotal.Inc()
	}
	if status == http.StatusInternalServerError {
		logger.Error(r.Context(), "request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestIDFromContext(r.Context()),
		)
	}

	writeMessage(w, status, msg)
}

func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, s.logger, s.metrics, err)
}

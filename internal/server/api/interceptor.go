package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/tasktracker/internal/common"
	"github.com/dmitrijs2005/tasktracker/internal/logging"
	"github.com/dmitrijs2005/tasktracker/internal/observability"
	"github.com/dmitrijs2005/tasktracker/internal/server/auth"
)

// Authenticate requires a valid "Authorization: Bearer <token>" header and
// attaches the caller's identity and claims to the request context. It holds
// no mutable state, so one instance can guard any number of routes.
//
// metrics may be nil.
func Authenticate(codec TokenDecoder, logger logging.Logger, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r.Header)
			if err == nil {
				var claims auth.Claims
				if claims, err = codec.Decode(token); err == nil {
					ctx := auth.WithIdentity(r.Context(), auth.Identity{CallerID: claims.Subject}, claims)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			reason := failureReason(err)
			if metrics != nil {
				metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
			}
			logger.Warn(r.Context(), "authentication rejected",
				"reason", reason,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"request_id", requestIDFromContext(r.Context()),
			)
			writeError(w, r, logger, metrics, err)
		})
	}
}

// bearerToken extracts the token from the Authorization header. An absent or
// empty header is ErrMissingCredentials; any other scheme or a token with
// embedded whitespace is ErrWrongCredentials.
func bearerToken(h http.Header) (string, error) {
	value := strings.TrimSpace(h.Get(common.AuthorizationHeaderName))
	if value == "" {
		return "", common.ErrMissingCredentials
	}

	scheme, token, ok := strings.Cut(value, " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", common.ErrWrongCredentials
	}

	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", common.ErrWrongCredentials
	}
	return token, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, common.ErrMissingCredentials):
		return "missing_credentials"
	case errors.Is(err, common.ErrWrongCredentials):
		return "wrong_credentials"
	case errors.Is(err, common.ErrTokenExpired):
		return "expired"
	case errors.Is(err, common.ErrTokenImmature):
		return "immature"
	case errors.Is(err, common.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, common.ErrUnsupportedAlgorithm):
		return "unsupported_algorithm"
	case errors.Is(err, common.ErrMalformedToken):
		return "malformed"
	default:
		return "invalid"
	}
}

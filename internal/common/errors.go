// Package common defines sentinel errors and shared constants used across
// the task tracker server. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrEntityNotFound = errors.New("entity not found")
	ErrDatabase       = errors.New("database consistency error")

	// Service-level errors.
	ErrInternal     = errors.New("internal error")
	ErrUnauthorised = errors.New("unauthorised")
	ErrNotOwner     = fmt.Errorf("%w: not resource owner", ErrUnauthorised)
	ErrValidation   = errors.New("validation error")

	// Registration conflicts.
	ErrUsernameTaken = errors.New("username already taken")
	ErrEmailExists   = errors.New("email already exists")

	// Authorization header errors.
	ErrMissingCredentials = errors.New("missing credentials")
	ErrWrongCredentials   = errors.New("wrong credentials")

	// Token errors. Every decode failure except expiry and immaturity
	// wraps ErrInvalidToken.
	ErrInvalidToken         = errors.New("invalid token")
	ErrMalformedToken       = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrInvalidSignature     = fmt.Errorf("%w: signature verification failed", ErrInvalidToken)
	ErrUnsupportedAlgorithm = fmt.Errorf("%w: unsupported signing algorithm", ErrInvalidToken)
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenImmature        = errors.New("token used before issued")
)

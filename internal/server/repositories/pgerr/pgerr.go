// Package pgerr classifies PostgreSQL constraint violations surfaced through
// database/sql by the pgx driver.
package pgerr

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes for integrity constraint violations.
const (
	UniqueViolation     = "23505"
	ForeignKeyViolation = "23503"
)

// Constraint returns the violated constraint name when err is a PostgreSQL
// error with the given SQLSTATE code.
func Constraint(err error, code string) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != code {
		return "", false
	}
	return pgErr.ConstraintName, true
}

// IsUniqueViolation reports a 23505 on any constraint.
func IsUniqueViolation(err error) bool {
	_, ok := Constraint(err, UniqueViolation)
	return ok
}

func IsForeignKeyViolation(err error) bool {
	_, ok := Constraint(err, ForeignKeyViolation)
	return ok
}

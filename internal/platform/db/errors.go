package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the repositories react to.
const (
	CodeUniqueViolation      = "23505"
	CodeForeignKeyViolation  = "23503"
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
	CodeLockNotAvailable     = "55P03"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports a duplicate key failure.
func IsUniqueViolation(err error) bool {
	return pgCode(err) == CodeUniqueViolation
}

// IsForeignKeyViolation reports a missing or still-referenced parent row.
func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == CodeForeignKeyViolation
}

// IsTransient reports failures caused by concurrent writers that a fresh
// transaction may not hit again.
func IsTransient(err error) bool {
	switch pgCode(err) {
	case CodeSerializationFailure, CodeDeadlockDetected, CodeLockNotAvailable, CodeUniqueViolation:
		return true
	}
	return false
}

// ConstraintName returns the violated constraint, if any.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

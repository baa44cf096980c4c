package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestIsTransient(t *testing.T) {
	for _, code := range []string{CodeUniqueViolation, CodeSerializationFailure, CodeDeadlockDetected, CodeLockNotAvailable} {
		err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: code})
		require.True(t, IsTransient(err), code)
	}
	require.False(t, IsTransient(&pgconn.PgError{Code: CodeForeignKeyViolation}))
	require.False(t, IsTransient(errors.New("plain")))
	require.False(t, IsTransient(nil))
}

func TestConstraintHelpers(t *testing.T) {
	err := fmt.Errorf("wrap: %w", &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "customers_code_key"})
	require.True(t, IsUniqueViolation(err))
	require.False(t, IsForeignKeyViolation(err))
	require.Equal(t, "customers_code_key", ConstraintName(err))
	require.Empty(t, ConstraintName(errors.New("x")))
}

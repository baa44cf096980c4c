package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActorFromContext(t *testing.T) {
	require.Equal(t, SystemActor, ActorFromContext(context.Background()))

	ctx := ContextWithActor(context.Background(), "  ada ")
	require.Equal(t, "ada", ActorFromContext(ctx))

	require.Equal(t, SystemActor, ActorFromContext(ContextWithActor(context.Background(), " ")))
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(0, 0, 45)
	require.Equal(t, 1, p.Page)
	require.Equal(t, DefaultPageSize, p.PerPage)
	require.Equal(t, 3, p.TotalPages)
	require.Equal(t, 0, p.Offset())

	p = NewPagination(3, 10, 25)
	require.Equal(t, 20, p.Offset())
	require.Equal(t, 3, p.TotalPages)

	require.Equal(t, MaxPageSize, ClampPageSize(10_000))
}

func TestAuditLoggerRejectsIncompleteEntries(t *testing.T) {
	var nilLogger *AuditLogger
	require.Error(t, nilLogger.Record(context.Background(), AuditLog{Action: "create", Entity: "invoice", EntityID: "1"}))

	logger := NewAuditLogger(nil)
	require.Error(t, logger.Record(context.Background(), AuditLog{Action: "create"}))
}

func TestNilIdempotencyStore(t *testing.T) {
	var store *IdempotencyStore
	require.Error(t, store.CheckAndInsert(context.Background(), "k", "invoices"))
	_, err := store.Lookup(context.Background(), "k", "invoices")
	require.ErrorIs(t, err, ErrNotFound)
	n, err := store.Cleanup(context.Background(), 0)
	require.NoError(t, err)
	require.Zero(t, n)
}

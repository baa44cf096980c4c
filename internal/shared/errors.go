package shared

import (
	"errors"

	"github.com/kudibooks/kudibooks/internal/platform/httpx"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = httpx.ErrNotFound
	// ErrIdempotencyConflict indicates a duplicate key.
	ErrIdempotencyConflict = errors.New("idempotent request already processed")
	// ErrIdempotencyKeyReused occurs when a key is replayed against another module.
	ErrIdempotencyKeyReused = errors.New("idempotency key already used for another operation")
)

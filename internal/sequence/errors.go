package sequence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kudibooks/kudibooks/internal/platform/db"
	"github.com/kudibooks/kudibooks/internal/platform/httpx"
)

var (
	// ErrConflict marks a transaction that lost a race for a code. It is
	// retried and never reaches callers on its own.
	ErrConflict = errors.New("sequence: concurrency conflict")
	// ErrCodeGenerationExhausted is returned once the retry budget is spent.
	ErrCodeGenerationExhausted = fmt.Errorf("sequence: code generation exhausted: %w", httpx.ErrUnavailable)
)

// ExhaustedError reports the scope and attempt count of a failed allocation.
type ExhaustedError struct {
	Kind     Kind
	Prefix   string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("sequence: could not allocate %s code (%s) after %d attempts: %v", e.Kind, e.Prefix, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return ErrCodeGenerationExhausted }

// IsConflict reports whether err is a transient race worth retrying:
// ErrConflict, a serialization failure, a deadlock, a lock timeout, or a
// unique violation on a code column.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConflict) {
		return true
	}
	if db.IsUniqueViolation(err) {
		name := db.ConstraintName(err)
		return name == "" || strings.HasSuffix(name, "_code_key") || strings.HasSuffix(name, "_pkey")
	}
	return db.IsTransient(err)
}

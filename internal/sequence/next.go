package sequence

import (
	"context"
	"fmt"
)

// Source is the set of storage operations Next needs. Implementations run
// inside a single transaction.
type Source interface {
	// Lock takes the exclusive per-prefix lock, creating the counter row when
	// missing, and returns the counter's last value.
	Lock(ctx context.Context, prefix string) (int64, error)
	// ExistingCodes lists codes of kind starting with prefix.
	ExistingCodes(ctx context.Context, kind Kind, prefix string) ([]string, error)
	// CodeExists reports whether any row of kind holds code.
	CodeExists(ctx context.Context, kind Kind, code string) (bool, error)
	// Advance stores value as the counter's last value.
	Advance(ctx context.Context, prefix string, value int64) error
}

// Next allocates the next code for scope. The caller owns the transaction
// and must commit it for the allocation to stick.
func Next(ctx context.Context, src Source, scope Scope) (string, error) {
	if err := scope.Validate(); err != nil {
		return "", err
	}

	last, err := src.Lock(ctx, scope.Prefix)
	if err != nil {
		return "", fmt.Errorf("sequence: lock %s: %w", scope.Prefix, err)
	}

	codes, err := src.ExistingCodes(ctx, scope.Kind, scope.Prefix)
	if err != nil {
		return "", fmt.Errorf("sequence: scan %s: %w", scope.Kind.Table(), err)
	}

	highest := last
	for _, code := range codes {
		if n, ok := scope.ParseSuffix(code); ok && n > highest {
			highest = n
		}
	}

	next := highest + 1
	code := scope.Format(next)

	taken, err := src.CodeExists(ctx, scope.Kind, code)
	if err != nil {
		return "", fmt.Errorf("sequence: check %s: %w", code, err)
	}
	if taken {
		return "", fmt.Errorf("%w: %s already taken", ErrConflict, code)
	}

	if err := src.Advance(ctx, scope.Prefix, next); err != nil {
		return "", fmt.Errorf("sequence: advance %s: %w", scope.Prefix, err)
	}
	return code, nil
}

// Package retry provides the bounded retry combinator used for
// contention-prone writes.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// ErrExhausted matches any error returned after the attempt budget ran out.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Policy bounds a retry loop.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy allows ten attempts with small jittered exponential backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 10,
		BaseDelay:   2 * time.Millisecond,
		MaxDelay:    100 * time.Millisecond,
	}
}

// ExhaustedError reports the final failure of a retried operation.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: gave up after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap exposes both the sentinel and the last underlying failure.
func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.Last}
}

// Do runs op until it succeeds, returns an error retryable rejects, the
// context ends, or the policy's attempt budget is spent.
func Do(ctx context.Context, policy Policy, retryable func(error) bool, op func(context.Context) error) error {
	if op == nil {
		return errors.New("retry: operation required")
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	attempts := 0
	var last error
	err := goretry.Do(ctx, policy.backoff(), func(ctx context.Context) error {
		attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}
		last = err
		if retryable != nil && retryable(err) {
			return goretry.RetryableError(err)
		}
		return err
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}
	if last != nil && retryable != nil && retryable(last) && attempts >= policy.MaxAttempts {
		return &ExhaustedError{Attempts: attempts, Last: last}
	}
	return err
}

func (p Policy) backoff() goretry.Backoff {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Millisecond
	}
	b := goretry.NewExponential(base)
	if p.MaxDelay > 0 {
		b = goretry.WithCappedDuration(p.MaxDelay, b)
		b = goretry.WithJitter(p.MaxDelay/4+time.Microsecond, b)
	}
	return goretry.WithMaxRetries(uint64(p.MaxAttempts-1), b)
}

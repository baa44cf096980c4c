package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errBusy = errors.New("busy")

func isBusy(err error) bool { return errors.Is(err, errBusy) }

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: time.Microsecond, MaxDelay: 10 * time.Microsecond}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(5), isBusy, func(context.Context) error {
		calls++
		if calls < 3 {
			return errBusy
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoExhausts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(4), isBusy, func(context.Context) error {
		calls++
		return errBusy
	})
	require.Error(t, err)
	require.Equal(t, 4, calls)
	require.ErrorIs(t, err, ErrExhausted)
	require.ErrorIs(t, err, errBusy)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 4, exhausted.Attempts)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("bad input")
	calls := 0
	err := Do(context.Background(), fastPolicy(10), isBusy, func(context.Context) error {
		calls++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	require.NotErrorIs(t, err, ErrExhausted)
	require.Equal(t, 1, calls)
}

func TestDoHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Do(ctx, fastPolicy(10), isBusy, func(context.Context) error {
		calls++
		return errBusy
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, calls)
}

func TestDoSingleAttemptPolicy(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{}, isBusy, func(context.Context) error {
		calls++
		return errBusy
	})
	require.ErrorIs(t, err, ErrExhausted)
	require.Equal(t, 1, calls)
}

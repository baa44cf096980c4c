package sequence

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kudibooks/kudibooks/internal/platform/retry"
)

// Runner opens a transaction and hands fn a Source bound to it.
type Runner interface {
	InTx(ctx context.Context, fn func(context.Context, Source) error) error
}

// Recorder receives generator counters. *observability.Metrics satisfies it.
type Recorder interface {
	CodegenAttempt(kind string)
	CodegenConflict(kind string)
	CodegenExhausted(kind string)
}

type noopRecorder struct{}

func (noopRecorder) CodegenAttempt(string) {}
func (noopRecorder) CodegenConflict(string) {}
func (noopRecorder) CodegenExhausted(string) {}

// Generator allocates codes with bounded retries.
type Generator struct {
	runner  Runner
	policy  retry.Policy
	metrics Recorder
	logger  *slog.Logger
}

// NewGenerator wires a generator. A nil recorder or logger is replaced by a
// no-op.
func NewGenerator(runner Runner, policy retry.Policy, metrics Recorder, logger *slog.Logger) *Generator {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{runner: runner, policy: policy, metrics: metrics, logger: logger}
}

// Generate reserves the next code of scope in its own transaction. The
// counter advances even if the code is never used.
func (g *Generator) Generate(ctx context.Context, scope Scope) (string, error) {
	return Claim[Source](ctx, g, scope, g.runner.InTx, nil)
}

// Claim allocates a code and runs insert in the same transaction, so the
// owning row and the counter commit together. inTx is usually a repository's
// WithTx; T is the transaction-bound repository, which must also be a Source.
// A conflict anywhere in the transaction, including the insert, restarts it.
func Claim[T Source](
	ctx context.Context,
	g *Generator,
	scope Scope,
	inTx func(context.Context, func(context.Context, T) error) error,
	insert func(ctx context.Context, tx T, code string) error,
) (string, error) {
	if err := scope.Validate(); err != nil {
		return "", err
	}
	kind := scope.Kind.String()

	var code string
	err := retry.Do(ctx, g.policy, IsConflict, func(ctx context.Context) error {
		g.metrics.CodegenAttempt(kind)
		err := inTx(ctx, func(ctx context.Context, tx T) error {
			next, err := Next(ctx, tx, scope)
			if err != nil {
				return err
			}
			if insert != nil {
				if err := insert(ctx, tx, next); err != nil {
					return err
				}
			}
			code = next
			return nil
		})
		if err != nil {
			code = ""
			if IsConflict(err) {
				g.metrics.CodegenConflict(kind)
				g.logger.Debug("code allocation conflict", slog.String("kind", kind), slog.Any("error", err))
			}
		}
		return err
	})
	if err == nil {
		return code, nil
	}

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		g.metrics.CodegenExhausted(kind)
		g.logger.Warn("code generation exhausted",
			slog.String("kind", kind),
			slog.String("prefix", scope.Prefix),
			slog.Int("attempts", exhausted.Attempts),
			slog.Any("error", exhausted.Last))
		return "", &ExhaustedError{Kind: scope.Kind, Prefix: scope.Prefix, Attempts: exhausted.Attempts, Last: exhausted.Last}
	}
	return "", err
}

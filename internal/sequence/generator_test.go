package sequence_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/kudibooks/kudibooks/internal/platform/httpx"
	"github.com/kudibooks/kudibooks/internal/platform/retry"
	"github.com/kudibooks/kudibooks/internal/sequence"
	"github.com/kudibooks/kudibooks/internal/sequence/sequencetest"
)

func testPolicy(attempts int) retry.Policy {
	return retry.Policy{MaxAttempts: attempts, BaseDelay: time.Microsecond, MaxDelay: time.Millisecond}
}

type countingRecorder struct {
	mu        sync.Mutex
	attempts  int
	conflicts int
	exhausted int
}

func (r *countingRecorder) CodegenAttempt(string) {
	r.mu.Lock()
	r.attempts++
	r.mu.Unlock()
}

func (r *countingRecorder) CodegenConflict(string) {
	r.mu.Lock()
	r.conflicts++
	r.mu.Unlock()
}

func (r *countingRecorder) CodegenExhausted(string) {
	r.mu.Lock()
	r.exhausted++
	r.mu.Unlock()
}

func TestGenerateFirstCustomerCodes(t *testing.T) {
	store := sequencetest.NewStore()
	gen := sequence.NewGenerator(store, testPolicy(10), nil, nil)
	scope := sequence.DefaultScope(sequence.KindCustomer)

	first, err := gen.Generate(context.Background(), scope)
	require.NoError(t, err)
	second, err := gen.Generate(context.Background(), scope)
	require.NoError(t, err)

	require.Equal(t, "CU-0001", first)
	require.Equal(t, "CU-0002", second)
	require.EqualValues(t, 2, store.Counter("CU-"))
}

func TestGenerateIgnoresMalformedSuffixes(t *testing.T) {
	store := sequencetest.NewStore()
	store.Seed(sequence.KindCustomer, "CU-0007", "CU-00A9", "CU-", "CU-x100", "XX-9999")
	gen := sequence.NewGenerator(store, testPolicy(10), nil, nil)

	code, err := gen.Generate(context.Background(), sequence.DefaultScope(sequence.KindCustomer))
	require.NoError(t, err)
	require.Equal(t, "CU-0008", code)
}

func TestGenerateNeverReusesCounterValues(t *testing.T) {
	store := sequencetest.NewStore()
	store.Seed(sequence.KindInvoice, "IN-00003")
	store.SetCounter("IN-", 12)
	gen := sequence.NewGenerator(store, testPolicy(10), nil, nil)

	code, err := gen.Generate(context.Background(), sequence.DefaultScope(sequence.KindInvoice))
	require.NoError(t, err)
	require.Equal(t, "IN-00013", code)
}

func TestGenerateConcurrentCodesAreContiguous(t *testing.T) {
	const k, n = 7, 50
	store := sequencetest.NewStore()
	store.Seed(sequence.KindInvoice, sequence.DefaultScope(sequence.KindInvoice).Format(k))
	gen := sequence.NewGenerator(store, testPolicy(10), nil, nil)
	scope := sequence.DefaultScope(sequence.KindInvoice)

	var wg sync.WaitGroup
	codes := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i], errs[i] = gen.Generate(context.Background(), scope)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	sort.Strings(codes)
	for i, code := range codes {
		require.Equal(t, scope.Format(int64(k+1+i)), code)
	}
}

func TestGenerateRetriesConflicts(t *testing.T) {
	store := sequencetest.NewStore()
	store.FailNext(
		sequence.ErrConflict,
		&pgconn.PgError{Code: "40001"},
		fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "customers_code_key"}),
	)
	rec := &countingRecorder{}
	gen := sequence.NewGenerator(store, testPolicy(10), rec, nil)

	code, err := gen.Generate(context.Background(), sequence.DefaultScope(sequence.KindCustomer))
	require.NoError(t, err)
	require.Equal(t, "CU-0001", code)
	require.Equal(t, 4, store.Transactions())
	require.Equal(t, 4, rec.attempts)
	require.Equal(t, 3, rec.conflicts)
	require.Zero(t, rec.exhausted)
}

func TestGenerateExhaustion(t *testing.T) {
	store := sequencetest.NewStore()
	conflicts := make([]error, 10)
	for i := range conflicts {
		conflicts[i] = &pgconn.PgError{Code: "40P01"}
	}
	store.FailNext(conflicts...)
	rec := &countingRecorder{}
	gen := sequence.NewGenerator(store, testPolicy(10), rec, nil)

	code, err := gen.Generate(context.Background(), sequence.DefaultScope(sequence.KindExpense))
	require.Empty(t, code)
	require.ErrorIs(t, err, sequence.ErrCodeGenerationExhausted)
	require.ErrorIs(t, err, httpx.ErrUnavailable)

	var exhausted *sequence.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 10, exhausted.Attempts)
	require.Equal(t, sequence.KindExpense, exhausted.Kind)
	require.Zero(t, store.Counter("EX-"))
	require.Equal(t, 1, rec.exhausted)
}

func TestGenerateStopsOnPermanentError(t *testing.T) {
	store := sequencetest.NewStore()
	boom := errors.New("disk full")
	store.FailNext(boom)
	gen := sequence.NewGenerator(store, testPolicy(10), nil, nil)

	_, err := gen.Generate(context.Background(), sequence.DefaultScope(sequence.KindProduct))
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, store.Transactions())
}

func TestGenerateRejectsInvalidScope(t *testing.T) {
	gen := sequence.NewGenerator(sequencetest.NewStore(), testPolicy(10), nil, nil)
	_, err := gen.Generate(context.Background(), sequence.Scope{Kind: sequence.KindProduct, Prefix: "", Width: 4})
	require.Error(t, err)
}

func TestClaimInsertsInSameTransaction(t *testing.T) {
	store := sequencetest.NewStore()
	gen := sequence.NewGenerator(store, testPolicy(10), nil, nil)
	scope := sequence.DefaultScope(sequence.KindCustomer)

	code, err := sequence.Claim(context.Background(), gen, scope, store.Do,
		func(ctx context.Context, tx *sequencetest.Tx, code string) error {
			return tx.AddCode(sequence.KindCustomer, code)
		})
	require.NoError(t, err)
	require.Equal(t, "CU-0001", code)
	require.Equal(t, []string{"CU-0001"}, store.Codes(sequence.KindCustomer))
}

func TestClaimRollsBackCounterWhenInsertFails(t *testing.T) {
	store := sequencetest.NewStore()
	gen := sequence.NewGenerator(store, testPolicy(10), nil, nil)
	scope := sequence.DefaultScope(sequence.KindCustomer)
	invalid := errors.New("name required")

	_, err := sequence.Claim(context.Background(), gen, scope, store.Do,
		func(ctx context.Context, tx *sequencetest.Tx, code string) error {
			return invalid
		})
	require.ErrorIs(t, err, invalid)
	require.Zero(t, store.Counter("CU-"))
	require.Empty(t, store.Codes(sequence.KindCustomer))

	code, err := gen.Generate(context.Background(), scope)
	require.NoError(t, err)
	require.Equal(t, "CU-0001", code)
}

func TestClaimRetriesWhenInsertConflicts(t *testing.T) {
	store := sequencetest.NewStore()
	gen := sequence.NewGenerator(store, testPolicy(10), nil, nil)
	scope := sequence.DefaultScope(sequence.KindInvoice)

	calls := 0
	code, err := sequence.Claim(context.Background(), gen, scope, store.Do,
		func(ctx context.Context, tx *sequencetest.Tx, code string) error {
			calls++
			if calls == 1 {
				return &pgconn.PgError{Code: "23505", ConstraintName: "invoices_code_key"}
			}
			return tx.AddCode(sequence.KindInvoice, code)
		})
	require.NoError(t, err)
	require.Equal(t, "IN-00001", code)
	require.Equal(t, 2, calls)
}

func TestIsConflict(t *testing.T) {
	require.True(t, sequence.IsConflict(sequence.ErrConflict))
	require.True(t, sequence.IsConflict(&pgconn.PgError{Code: "55P03"}))
	require.True(t, sequence.IsConflict(&pgconn.PgError{Code: "23505", ConstraintName: "products_code_key"}))
	require.False(t, sequence.IsConflict(&pgconn.PgError{Code: "23505", ConstraintName: "customers_email_key"}))
	require.False(t, sequence.IsConflict(&pgconn.PgError{Code: "23503"}))
	require.False(t, sequence.IsConflict(nil))
}

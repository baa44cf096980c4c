package reports

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/kudibooks/kudibooks/internal/money"
	"github.com/kudibooks/kudibooks/internal/platform/cache"
	"github.com/kudibooks/kudibooks/internal/platform/httpx"
	"github.com/kudibooks/kudibooks/internal/settings"
)

type mockRepo struct {
	mu       sync.Mutex
	calls    map[string]int
	totals   InvoiceTotals
	spent    int64
	statuses []StatusCount
	aging    []AgingBucket
	agingAt  time.Time
	debtors  []Debtor
	trend    []TrendPoint
	gate     chan struct{}
	entered  chan struct{}
	once     sync.Once
}

func newMockRepo() *mockRepo {
	return &mockRepo{calls: map[string]int{}}
}

func (m *mockRepo) hit(name string) {
	m.mu.Lock()
	m.calls[name]++
	m.mu.Unlock()
}

func (m *mockRepo) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *mockRepo) InvoiceTotals(ctx context.Context, r Range) (InvoiceTotals, error) {
	m.hit("totals")
	if m.gate != nil {
		m.once.Do(func() { close(m.entered) })
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals, nil
}

func (m *mockRepo) ExpenseTotal(ctx context.Context, r Range) (int64, error) {
	m.hit("expenses")
	return m.spent, nil
}

func (m *mockRepo) StatusBreakdown(ctx context.Context, r Range) ([]StatusCount, error) {
	m.hit("status")
	return m.statuses, nil
}

func (m *mockRepo) Aging(ctx context.Context, asOf time.Time) ([]AgingBucket, error) {
	m.hit("aging")
	m.mu.Lock()
	m.agingAt = asOf
	m.mu.Unlock()
	return m.aging, nil
}

func (m *mockRepo) TopDebtors(ctx context.Context, limit int) ([]Debtor, error) {
	m.hit("debtors")
	return m.debtors, nil
}

func (m *mockRepo) MonthlyTrend(ctx context.Context, r Range) ([]TrendPoint, error) {
	m.hit("trend")
	return m.trend, nil
}

var fixedNow = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc := NewService(repo, cache.NewVersioned(client, CacheNamespace, time.Minute), slog.New(slog.DiscardHandler))
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestGetSummaryCaches(t *testing.T) {
	repo := newMockRepo()
	repo.totals = InvoiceTotals{Count: 3, Invoiced: 90000, Paid: 60000, Due: 30000}
	repo.spent = 25000
	svc := newTestService(t, repo)
	ctx := context.Background()

	summary, err := svc.GetSummary(ctx, Range{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Net != money.FromMinor(35000) {
		t.Fatalf("expected net 35000 got %d", summary.Net)
	}
	if summary.From != time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) || summary.To != time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected default range %s..%s", summary.From, summary.To)
	}

	// Second call should hit cache.
	if _, err := svc.GetSummary(ctx, Range{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.count("totals") != 1 {
		t.Fatalf("expected cached result, repo called %d times", repo.count("totals"))
	}

	// Bumping the cache should trigger reload.
	if err := svc.Bump(ctx); err != nil {
		t.Fatalf("bump failed: %v", err)
	}
	repo.totals.Paid = 70000
	summary, err = svc.GetSummary(ctx, Range{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Paid != money.FromMinor(70000) || repo.count("totals") != 2 {
		t.Fatalf("expected refreshed value, got paid %d after %d calls", summary.Paid, repo.count("totals"))
	}
}

func TestGetSummaryRejectsReversedRange(t *testing.T) {
	svc := newTestService(t, newMockRepo())
	_, err := svc.GetSummary(context.Background(), Range{
		From: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, httpx.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConcurrentRequestsShareOneLoad(t *testing.T) {
	repo := newMockRepo()
	repo.gate = make(chan struct{})
	repo.entered = make(chan struct{})
	svc := newTestService(t, repo)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GetSummary(context.Background(), Range{})
			errs <- err
		}()
	}
	<-repo.entered
	time.Sleep(20 * time.Millisecond)
	close(repo.gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if repo.count("totals") != 1 {
		t.Fatalf("expected a single load, got %d", repo.count("totals"))
	}
}

func TestStatusBreakdownListsEveryStatus(t *testing.T) {
	repo := newMockRepo()
	repo.statuses = []StatusCount{{Status: "paid", Count: 2, Total: 5000}}
	svc := newTestService(t, repo)

	rows, err := svc.GetStatusBreakdown(context.Background(), Range{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 || rows[0].Status != "unpaid" || rows[0].Count != 0 || rows[2].Count != 2 {
		t.Fatalf("unexpected breakdown %#v", rows)
	}
}

func TestGetAgingDefaultsAsOfAndFillsBuckets(t *testing.T) {
	repo := newMockRepo()
	repo.aging = []AgingBucket{
		{Bucket: "1-30", Count: 2, Due: 7000},
		{Bucket: "90+", Count: 1, Due: 3000},
	}
	svc := newTestService(t, repo)

	aging, err := svc.GetAging(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("aging error: %v", err)
	}
	if len(aging.Buckets) != len(AgingBuckets) {
		t.Fatalf("expected %d buckets got %d", len(AgingBuckets), len(aging.Buckets))
	}
	if aging.Buckets[0].Bucket != "current" || aging.Buckets[1].Due != 7000 {
		t.Fatalf("unexpected buckets %#v", aging.Buckets)
	}
	if aging.Total != money.FromMinor(10000) {
		t.Fatalf("expected total 10000 got %d", aging.Total)
	}
	if !repo.agingAt.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected as_of to default to today, got %s", repo.agingAt)
	}
}

func TestBucketFor(t *testing.T) {
	cases := map[int]string{-3: "current", 0: "current", 1: "1-30", 30: "1-30", 31: "31-60", 60: "31-60", 61: "61-90", 90: "61-90", 91: "90+"}
	for days, want := range cases {
		if got := BucketFor(days); got != want {
			t.Fatalf("BucketFor(%d) = %s, want %s", days, got, want)
		}
	}
}

func TestGetDashboardLoadsEveryPart(t *testing.T) {
	repo := newMockRepo()
	repo.totals = InvoiceTotals{Count: 1, Invoiced: 1000, Paid: 1000}
	repo.debtors = []Debtor{{CustomerID: 1, Code: "CU-0002", Due: 500}}
	repo.trend = []TrendPoint{{Period: "2026-03", Invoiced: 1000}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	dash, err := svc.GetDashboard(ctx, Range{})
	if err != nil {
		t.Fatalf("dashboard error: %v", err)
	}
	if dash.Summary.InvoiceCount != 1 || len(dash.ByStatus) != 3 || len(dash.Aging.Buckets) != 5 {
		t.Fatalf("unexpected dashboard %#v", dash)
	}
	if len(dash.TopDebtors) != 1 || len(dash.Trend) != 1 {
		t.Fatalf("unexpected dashboard lists %#v", dash)
	}

	if _, err := svc.GetDashboard(ctx, Range{}); err != nil {
		t.Fatalf("dashboard error: %v", err)
	}
	for _, name := range []string{"totals", "expenses", "status", "aging", "debtors", "trend"} {
		if repo.count(name) != 1 {
			t.Fatalf("expected %s to load once, got %d", name, repo.count(name))
		}
	}
}

func TestServiceWithoutCache(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil)
	for i := 0; i < 2; i++ {
		if _, err := svc.GetTopDebtors(context.Background(), 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if repo.count("debtors") != 2 {
		t.Fatalf("expected pass-through loads, got %d", repo.count("debtors"))
	}
	if err := svc.Bump(context.Background()); err != nil {
		t.Fatalf("bump without cache: %v", err)
	}
}

func TestHandlers(t *testing.T) {
	repo := newMockRepo()
	repo.aging = []AgingBucket{{Bucket: "current", Count: 1, Due: 150000}}
	svc := newTestService(t, repo)
	r := chi.NewRouter()
	NewHandler(slog.New(slog.DiscardHandler), svc, settings.Static{}).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/aging?as_of=2026-03-01&format=csv", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("expected csv content type, got %s", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "current,1,1500.00") {
		t.Fatalf("unexpected csv body %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/dashboard?from=2026-03-01&to=2026-03-31", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/dashboard?from=March", nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/summary?from=2026-03-31&to=2026-03-01", nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for reversed range got %d", rec.Code)
	}
}

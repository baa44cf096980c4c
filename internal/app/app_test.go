package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kudibooks/kudibooks/internal/observability"
	"github.com/kudibooks/kudibooks/internal/settings"
	_ "github.com/kudibooks/kudibooks/testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("CODEGEN_MAX_ATTEMPTS", "4")
	t.Setenv("REPORTS_CACHE_TTL", "90s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.AppAddr)
	require.Equal(t, 90*time.Second, cfg.ReportsCacheTTL)
	require.Equal(t, 10*time.Minute, cfg.SettingsCacheTTL)
	require.False(t, cfg.IsProduction())

	policy := cfg.CodegenPolicy()
	require.Equal(t, 4, policy.MaxAttempts)
	require.Equal(t, 2*time.Millisecond, policy.BaseDelay)
}

func TestLoadConfigRejectsZeroAttempts(t *testing.T) {
	t.Setenv("CODEGEN_MAX_ATTEMPTS", "0")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLevel("debug"))
	require.Equal(t, slog.LevelWarn, parseLevel(" WARN "))
	require.Equal(t, slog.LevelInfo, parseLevel("chatty"))
}

type staticSettings map[string]string

func (s staticSettings) All(context.Context) (map[string]string, error) { return s, nil }
func (s staticSettings) Upsert(context.Context, map[string]string) error { return nil }

type downDB struct{}

func (downDB) Ping(context.Context) error { return errors.New("connection refused") }

func newTestRouter(t *testing.T, params RouterParams) http.Handler {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	params.Logger = logger
	if params.Config == nil {
		params.Config = &Config{AppEnv: "test", RateLimitPerMinute: 1000}
	}
	return NewRouter(params)
}

func TestRouterServesAPIAndOps(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	svc := settings.NewService(staticSettings{}, nil, logger)
	router := newTestRouter(t, RouterParams{
		SettingsHandler: settings.NewHandler(logger, svc),
		Metrics:         observability.NewMetrics(),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "code.invoice.prefix")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `http_requests_total{code="200",route="/api/settings"} 1`)
}

func TestReadinessReportsDatabaseOutage(t *testing.T) {
	router := newTestRouter(t, RouterParams{Database: downDB{}})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimit(t *testing.T) {
	router := newTestRouter(t, RouterParams{Config: &Config{RateLimitPerMinute: 2}})
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestTestModeIsForced(t *testing.T) {
	RefreshTestMode()
	require.True(t, InTestMode())
}

package reports

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kudibooks/kudibooks/internal/money"
	"github.com/kudibooks/kudibooks/internal/platform/httpx"
	"github.com/kudibooks/kudibooks/internal/settings"
)

const requestTimeout = 5 * time.Second

// Handler serves report endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	settings settings.Reader
}

// NewHandler builds a report handler. settings supplies the currency of CSV
// exports.
func NewHandler(logger *slog.Logger, service *Service, settings settings.Reader) *Handler {
	return &Handler{logger: logger, service: service, settings: settings}
}

// MountRoutes registers report endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/dashboard", h.Dashboard)
		r.Get("/summary", h.Summary)
		r.Get("/aging", h.Aging)
		r.Get("/trend", h.Trend)
	})
}

func rangeQuery(r *http.Request) (Range, error) {
	from, err := httpx.DateQuery(r, "from")
	if err != nil {
		return Range{}, err
	}
	to, err := httpx.DateQuery(r, "to")
	if err != nil {
		return Range{}, err
	}
	return Range{From: from, To: to}, nil
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	rg, err := rangeQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := contextWithTimeout(r)
	defer cancel()
	data, err := h.service.GetDashboard(ctx, rg)
	if err != nil {
		h.fail(w, "load dashboard failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, data)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	rg, err := rangeQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := contextWithTimeout(r)
	defer cancel()
	summary, err := h.service.GetSummary(ctx, rg)
	if err != nil {
		h.fail(w, "load summary failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) Aging(w http.ResponseWriter, r *http.Request) {
	asOf, err := httpx.DateQuery(r, "as_of")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := contextWithTimeout(r)
	defer cancel()
	aging, err := h.service.GetAging(ctx, asOf)
	if err != nil {
		h.fail(w, "load aging failed", err)
		return
	}
	if wantsCSV(r) {
		h.csv(w, r, "aging.csv", func(currency string) error {
			return WriteAgingCSV(w, aging, currency)
		})
		return
	}
	httpx.JSON(w, http.StatusOK, aging)
}

func (h *Handler) Trend(w http.ResponseWriter, r *http.Request) {
	rg, err := rangeQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := contextWithTimeout(r)
	defer cancel()
	points, err := h.service.GetTrend(ctx, rg)
	if err != nil {
		h.fail(w, "load trend failed", err)
		return
	}
	if wantsCSV(r) {
		h.csv(w, r, "trend.csv", func(currency string) error {
			return WriteTrendCSV(w, points, currency)
		})
		return
	}
	httpx.JSON(w, http.StatusOK, points)
}

func wantsCSV(r *http.Request) bool {
	return r.URL.Query().Get("format") == "csv"
}

func (h *Handler) csv(w http.ResponseWriter, r *http.Request, filename string, write func(currency string) error) {
	currency := money.DefaultCurrency
	if h.settings != nil {
		if snap, err := h.settings.Snapshot(r.Context()); err == nil {
			currency = snap.MoneyFormat().Currency
		}
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := write(currency); err != nil {
		h.logger.Error("write csv failed", slog.String("file", filename), slog.Any("error", err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if !errors.Is(err, httpx.ErrValidation) {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func contextWithTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}

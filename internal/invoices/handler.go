package invoices

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kudibooks/kudibooks/internal/platform/httpx"
	"github.com/kudibooks/kudibooks/internal/settings"
	"github.com/kudibooks/kudibooks/internal/shared"
)

// IdempotencyHeader carries the client key that makes create retries safe.
const IdempotencyHeader = "Idempotency-Key"

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// invoiceView adds the status badge and formatted amounts to an invoice.
type invoiceView struct {
	*Invoice
	StatusBadge *Badge            `json:"status_badge,omitempty"`
	Display     map[string]string `json:"display"`
}

type listResponse struct {
	Data       []invoiceView     `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) snapshot(r *http.Request) settings.Snapshot {
	snap, err := h.service.Settings.Snapshot(r.Context())
	if err != nil {
		h.logger.Warn("settings unavailable for display", slog.Any("error", err))
		return settings.NewSnapshot(nil)
	}
	return snap
}

func newView(snap settings.Snapshot, inv *Invoice) invoiceView {
	v := invoiceView{Invoice: inv, Display: map[string]string{
		"subtotal":  snap.FormatMoney(inv.Subtotal),
		"discount":  snap.FormatMoney(inv.Discount),
		"round_off": snap.FormatMoney(inv.RoundOff),
		"total":     snap.FormatMoney(inv.Total),
		"paid":      snap.FormatMoney(inv.Paid),
		"due":       snap.FormatMoney(inv.Due),
	}}
	if inv.Status.Valid() {
		badge := inv.Status.Badge()
		v.StatusBadge = &badge
	}
	return v
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, inv *Invoice) {
	httpx.JSON(w, status, newView(h.snapshot(r), inv))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := httpx.PageParams(r)
	p := shared.NewPagination(page, perPage, 0)

	req := ListInvoicesRequest{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Limit:  p.PerPage,
		Offset: p.Offset(),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status, err := ParseStatus(v)
		if err != nil {
			httpx.RespondError(w, httpx.FieldErrors{"status": "must be one of unpaid, partial, paid"})
			return
		}
		req.Status = status
	}
	var err error
	if req.CustomerID, err = httpx.Int64Query(r, "customer_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if req.From, err = httpx.DateQuery(r, "from"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if req.To, err = httpx.DateQuery(r, "to"); err != nil {
		httpx.RespondError(w, err)
		return
	}

	invoices, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list invoices failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	snap := h.snapshot(r)
	data := make([]invoiceView, 0, len(invoices))
	for i := range invoices {
		data = append(data, newView(snap, &invoices[i]))
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: data, Pagination: shared.NewPagination(p.Page, p.PerPage, total)})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, inv)
}

func (h *Handler) NextCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.service.NextCode(r.Context())
	if err != nil {
		h.logger.Error("generate invoice code failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"code": code})
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Preview(r.Context(), req)
	if err != nil {
		h.fail(w, "preview invoice failed", err)
		return
	}
	h.respond(w, r, http.StatusOK, inv)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, replayed, err := h.service.CreateIdempotent(r.Context(), r.Header.Get(IdempotencyHeader), req)
	if err != nil {
		h.fail(w, "create invoice failed", err)
		return
	}
	if replayed {
		w.Header().Set("Idempotent-Replayed", "true")
		h.respond(w, r, http.StatusOK, inv)
		return
	}
	h.respond(w, r, http.StatusCreated, inv)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateInvoiceRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.fail(w, "update invoice failed", err, slog.Int64("id", id))
		return
	}
	h.respond(w, r, http.StatusOK, inv)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete invoice failed", err, slog.Int64("id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddPayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req PaymentInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.AddPayment(r.Context(), id, req)
	if err != nil {
		h.fail(w, "add payment failed", err, slog.Int64("id", id))
		return
	}
	h.respond(w, r, http.StatusCreated, inv)
}

func (h *Handler) RemovePayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	paymentID, err := httpx.IDParam(r, "paymentID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.RemovePayment(r.Context(), id, paymentID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	changed, err := h.service.Recalculate(r.Context(), id)
	if err != nil {
		h.fail(w, "recalculate invoice failed", err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"changed": changed})
}

// fail logs unexpected errors. Validation and lookup failures are the
// caller's problem and are only answered.
func (h *Handler) fail(w http.ResponseWriter, msg string, err error, attrs ...any) {
	if !errors.Is(err, httpx.ErrValidation) && !errors.Is(err, httpx.ErrNotFound) {
		h.logger.Error(msg, append(attrs, slog.Any("error", err))...)
	}
	httpx.RespondError(w, err)
}

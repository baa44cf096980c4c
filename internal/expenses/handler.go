package expenses

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/kudibooks/kudibooks/internal/platform/httpx"
	"github.com/kudibooks/kudibooks/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type listResponse struct {
	Data       []Expense         `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := httpx.PageParams(r)
	p := shared.NewPagination(page, perPage, 0)
	from, err := httpx.DateQuery(r, "from")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := httpx.DateQuery(r, "to")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	expenses, total, err := h.service.List(r.Context(), ListExpensesRequest{
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
		From:     from,
		To:       to,
		Limit:    p.PerPage,
		Offset:   p.Offset(),
	})
	if err != nil {
		h.logger.Error("list expenses failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if expenses == nil {
		expenses = []Expense{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: expenses, Pagination: shared.NewPagination(p.Page, p.PerPage, total)})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	expense, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, expense)
}

func (h *Handler) NextCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.service.NextCode(r.Context())
	if err != nil {
		h.logger.Error("generate expense code failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"code": code})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateExpenseRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	expense, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create expense failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, expense)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateExpenseRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	expense, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.logger.Error("update expense failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, expense)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package settings

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kudibooks/kudibooks/internal/money"
	"github.com/kudibooks/kudibooks/internal/platform/httpx"
)

// Handler serves the settings API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the settings endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/settings", h.get)
	r.Put("/settings", h.update)
}

type settingsResponse struct {
	Values  map[string]string `json:"values"`
	Example string            `json:"money_example"`
}

func respond(w http.ResponseWriter, status int, snap Snapshot) {
	httpx.JSON(w, status, settingsResponse{
		Values:  snap.All(),
		Example: snap.FormatMoney(money.FromMinor(123456789)),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("load settings failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	respond(w, http.StatusOK, snap)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := httpx.DecodeJSON(r, &values); err != nil {
		httpx.RespondError(w, err)
		return
	}
	snap, err := h.service.Update(r.Context(), values)
	if err != nil {
		h.logger.Warn("update settings failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	respond(w, http.StatusOK, snap)
}

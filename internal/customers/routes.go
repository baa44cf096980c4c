package customers

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/customers", h.List)
	r.Post("/customers", h.Create)
	r.Get("/customers/next-code", h.NextCode)
	r.Get("/customers/{id}", h.Show)
	r.Put("/customers/{id}", h.Update)
	r.Delete("/customers/{id}", h.Delete)
}

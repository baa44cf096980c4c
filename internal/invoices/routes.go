package invoices

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/next-code", h.NextCode)
		r.Post("/preview", h.Preview)
		r.Get("/{id}", h.Show)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/payments", h.AddPayment)
		r.Delete("/{id}/payments/{paymentID}", h.RemovePayment)
		r.Post("/{id}/recalculate", h.Recalculate)
	})
}

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// APIVersion is reported by GET /api/v1/.
const APIVersion = "1.0.0"

// MountRoutes registers the health endpoint and all API routes on r.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"name": "productapi", "version": APIVersion})
		})

		r.Get("/products", h.ListProducts)
		r.Post("/products", h.CreateProduct)
		r.Get("/products/{id}", h.GetProduct)
		r.Put("/products/{id}", h.UpdateProduct)
		r.Patch("/products/{id}/stock", h.UpdateProductStock)
		r.Delete("/products/{id}", h.DeleteProduct)
	})
}

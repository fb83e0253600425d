package http

import (
	"context"
	"net/http"

	"github.com/Strob0t/productapi/internal/domain/product"
)

const productNotFound = "product not found"

// ListProducts handles GET /api/v1/products
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	handleList(h.Products.GetAll)(w, r)
}

// GetProduct handles GET /api/v1/products/{id}
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	handleGet(h.Products.GetByID, productNotFound)(w, r)
}

// CreateProduct handles POST /api/v1/products
func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	handleCreate(h.Products.Create, func(p *product.DTO) string {
		return "/api/v1/products/" + p.ID
	})(w, r)
}

// UpdateProduct handles PUT /api/v1/products/{id}
func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	handleUpdate(h.Products.Update, productNotFound)(w, r)
}

// UpdateProductStock handles PATCH /api/v1/products/{id}/stock
func (h *Handlers) UpdateProductStock(w http.ResponseWriter, r *http.Request) {
	handleUpdate(func(ctx context.Context, id string, req product.StockRequest) error {
		if req.Stock == nil {
			return errStockRequired
		}
		return h.Products.UpdateStock(ctx, id, *req.Stock)
	}, productNotFound)(w, r)
}

// DeleteProduct handles DELETE /api/v1/products/{id}. Deleting an unknown
// product also answers 204.
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	handleDelete(h.Products.Delete, productNotFound)(w, r)
}

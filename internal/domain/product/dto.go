package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// DTO is the transfer object returned by the API. It has no link back to the
// entity it was built from.
type DTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at"`
}

// CreateRequest holds the caller-supplied fields for a new product.
type CreateRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

// UpdateRequest holds the fields replaced by a details update.
type UpdateRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

// StockRequest sets a product's stock level.
type StockRequest struct {
	Stock *int `json:"stock"`
}

// ToDTO maps a Product to its transfer object.
func ToDTO(p *Product) DTO {
	return DTO{
		ID:          p.id,
		Name:        p.name,
		Description: p.description,
		Price:       p.price,
		Stock:       p.stock,
		Version:     p.version,
		CreatedAt:   p.createdAt,
		UpdatedAt:   p.UpdatedAt(),
	}
}

// ToDTOs maps a slice of products. The result is never nil.
func ToDTOs(ps []*Product) []DTO {
	out := make([]DTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, ToDTO(p))
	}
	return out
}

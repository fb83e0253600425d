package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is the flat persistence form of a Product. Store and cache
// adapters use it to save and materialize products; it carries no validation.
type Snapshot struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

// Snapshot returns a copy of p's state.
func (p *Product) Snapshot() Snapshot {
	return Snapshot{
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

// Rehydrate materializes a Product from previously persisted state.
// The data is trusted: it was validated before it was stored.
func Rehydrate(s Snapshot) *Product {
	p := &Product{
		id:          s.ID,
		name:        s.Name,
		description: s.Description,
		price:       s.Price,
		stock:       s.Stock,
		createdAt:   s.CreatedAt,
		version:     s.Version,
	}
	if s.UpdatedAt != nil {
		t := *s.UpdatedAt
		p.updatedAt = &t
	}
	return p
}

// Package database defines the product store port (interface).
package database

import (
	"context"

	"github.com/Strob0t/productapi/internal/domain/product"
)

// ProductStore persists products keyed by id. Implementations own the
// canonical copy of each product: values passed in and handed out are copies.
type ProductStore interface {
	// Get returns the product with the given id, or an error wrapping
	// domain.ErrNotFound.
	Get(ctx context.Context, id string) (*product.Product, error)

	// List returns every product, oldest first.
	List(ctx context.Context) ([]*product.Product, error)

	// Add stores a new product. It fails with domain.ErrConflict if the id
	// is already present.
	Add(ctx context.Context, p *product.Product) error

	// Update replaces a stored product if its version still matches and
	// advances p's version. A missing id is a no-op; a stale version fails
	// with domain.ErrConflict.
	Update(ctx context.Context, p *product.Product) error

	// Delete removes a product and reports whether it existed. A missing id
	// is a no-op.
	Delete(ctx context.Context, id string) (bool, error)
}

package messagequeue

import "github.com/Strob0t/productapi/internal/domain/product"

// SubjectFor maps a product event type to its subject.
func SubjectFor(t product.EventType) string {
	switch t {
	case product.EventCreated:
		return SubjectProductCreated
	case product.EventUpdated:
		return SubjectProductUpdated
	case product.EventStockUpdated:
		return SubjectProductStockUpdated
	case product.EventDeleted:
		return SubjectProductDeleted
	default:
		return "products." + string(t)
	}
}

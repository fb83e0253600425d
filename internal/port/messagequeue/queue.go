// Package messagequeue defines the message publishing port (interface).
package messagequeue

import "context"

// Publisher sends messages to subjects.
type Publisher interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Drain flushes pending messages and closes the connection.
	Drain() error

	// IsConnected reports whether the publisher is currently connected.
	IsConnected() bool
}

// Subject constants for product lifecycle events.
const (
	SubjectProductCreated      = "products.created"
	SubjectProductUpdated      = "products.updated"
	SubjectProductStockUpdated = "products.stock_updated"
	SubjectProductDeleted      = "products.deleted"
)

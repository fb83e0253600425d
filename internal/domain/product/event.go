package product

import "time"

// EventType names a product lifecycle change.
type EventType string

const (
	EventCreated      EventType = "created"
	EventUpdated      EventType = "updated"
	EventStockUpdated EventType = "stock_updated"
	EventDeleted      EventType = "deleted"
)

// Event is published after a product mutation has been persisted.
type Event struct {
	Type       EventType `json:"type"`
	ProductID  string    `json:"product_id"`
	Product    *DTO      `json:"product,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent builds an Event for p. A nil p yields an event without a payload,
// as used for deletions.
func NewEvent(t EventType, id string, p *Product) Event {
	ev := Event{Type: t, ProductID: id, OccurredAt: now()}
	if p != nil {
		dto := ToDTO(p)
		ev.Product = &dto
	}
	return ev
}

// Package service implements business logic on top of ports.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	cfotel "github.com/Strob0t/productapi/internal/adapter/otel"
	"github.com/Strob0t/productapi/internal/domain"
	"github.com/Strob0t/productapi/internal/domain/product"
	"github.com/Strob0t/productapi/internal/port/database"
	"github.com/Strob0t/productapi/internal/port/messagequeue"
	"github.com/Strob0t/productapi/internal/resilience"
)

const publishTimeout = 5 * time.Second

// ProductService orchestrates product use cases: it loads and stores
// entities through the store port, maps them to DTOs and announces
// successful mutations as events.
type ProductService struct {
	store     database.ProductStore
	publisher messagequeue.Publisher
	breaker   *resilience.Breaker
	metrics   *cfotel.Metrics
}

// NewProductService creates a new ProductService. Events are disabled until
// SetPublisher is called.
func NewProductService(store database.ProductStore) *ProductService {
	return &ProductService{store: store}
}

// SetPublisher enables product events. breaker may be nil.
func (s *ProductService) SetPublisher(pub messagequeue.Publisher, breaker *resilience.Breaker) {
	s.publisher = pub
	s.breaker = breaker
}

// SetMetrics sets the metric instruments.
func (s *ProductService) SetMetrics(m *cfotel.Metrics) {
	s.metrics = m
}

// GetByID returns the product, or nil without error when it does not exist.
func (s *ProductService) GetByID(ctx context.Context, id string) (dto *product.DTO, err error) {
	ctx, done := s.observe(ctx, "get", id)
	defer func() { done(err) }()

	p, err := s.store.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := product.ToDTO(p)
	return &out, nil
}

// GetAll returns every product. The result is empty, not nil, when there are none.
func (s *ProductService) GetAll(ctx context.Context) (dtos []product.DTO, err error) {
	ctx, done := s.observe(ctx, "list", "")
	defer func() { done(err) }()

	ps, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return product.ToDTOs(ps), nil
}

// Create validates req into a new product and stores it.
func (s *ProductService) Create(ctx context.Context, req product.CreateRequest) (dto *product.DTO, err error) {
	ctx, done := s.observe(ctx, "create", "")
	defer func() { done(err) }()

	p, err := product.New(req.Name, req.Description, req.Price, req.Stock)
	if err != nil {
		return nil, err
	}
	if err := s.store.Add(ctx, p); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "product created", "product_id", p.ID())
	s.publish(ctx, product.NewEvent(product.EventCreated, p.ID(), p))

	out := product.ToDTO(p)
	return &out, nil
}

// Update replaces a product's name, description and price.
func (s *ProductService) Update(ctx context.Context, id string, req product.UpdateRequest) (err error) {
	ctx, done := s.observe(ctx, "update", id)
	defer func() { done(err) }()

	return s.mutate(ctx, id, product.EventUpdated, func(p *product.Product) error {
		return p.UpdateDetails(req.Name, req.Description, req.Price)
	})
}

// UpdateStock sets a product's stock level.
func (s *ProductService) UpdateStock(ctx context.Context, id string, stock int) (err error) {
	ctx, done := s.observe(ctx, "update_stock", id)
	defer func() { done(err) }()

	return s.mutate(ctx, id, product.EventStockUpdated, func(p *product.Product) error {
		return p.UpdateStock(stock)
	})
}

// Delete removes a product. Deleting a missing product succeeds and
// publishes nothing.
func (s *ProductService) Delete(ctx context.Context, id string) (err error) {
	ctx, done := s.observe(ctx, "delete", id)
	defer func() { done(err) }()

	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		slog.DebugContext(ctx, "delete of absent product", "product_id", id)
		return nil
	}
	slog.InfoContext(ctx, "product deleted", "product_id", id)
	s.publish(ctx, product.NewEvent(product.EventDeleted, id, nil))
	return nil
}

// mutate loads the product, applies fn and writes it back. If the product is
// deleted between load and write the store ignores the write and no event is
// sent for it.
func (s *ProductService) mutate(ctx context.Context, id string, evType product.EventType, fn func(*product.Product) error) error {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
		}
		return err
	}

	if err := fn(p); err != nil {
		return err
	}

	before := p.Version()
	if err := s.store.Update(ctx, p); err != nil {
		return err
	}
	if p.Version() == before {
		slog.InfoContext(ctx, "product vanished before update was written", "product_id", id)
		return nil
	}

	slog.InfoContext(ctx, "product updated", "product_id", id, "event", evType, "version", p.Version())
	s.publish(ctx, product.NewEvent(evType, id, p))
	return nil
}

// publish sends ev best effort. Failures are logged and counted, never returned.
func (s *ProductService) publish(ctx context.Context, ev product.Event) {
	if s.publisher == nil {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal product event", "type", ev.Type, "error", err)
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	send := func(ctx context.Context) error {
		return s.publisher.Publish(ctx, messagequeue.SubjectFor(ev.Type), data)
	}
	if s.breaker != nil {
		err = s.breaker.Execute(pubCtx, send)
	} else {
		err = send(pubCtx)
	}

	if err != nil {
		slog.WarnContext(ctx, "product event not published", "type", ev.Type, "product_id", ev.ProductID, "error", err)
		s.metrics.RecordEvent(ctx, string(ev.Type), cfotel.OutcomeError)
		return
	}
	s.metrics.RecordEvent(ctx, string(ev.Type), cfotel.OutcomeOK)
}

// observe starts a span for op and returns a func that ends it and records
// the outcome metric.
func (s *ProductService) observe(ctx context.Context, op, id string) (context.Context, func(error)) {
	started := time.Now()
	ctx, span := cfotel.StartProductSpan(ctx, op, id)
	return ctx, func(err error) {
		s.metrics.RecordOperation(ctx, op, outcome(err), started)
		if err != nil && outcome(err) == cfotel.OutcomeError {
			cfotel.EndSpan(span, err)
			return
		}
		cfotel.EndSpan(span, nil)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return cfotel.OutcomeOK
	case errors.Is(err, domain.ErrNotFound):
		return cfotel.OutcomeNotFound
	case errors.Is(err, domain.ErrValidation):
		return cfotel.OutcomeInvalid
	case errors.Is(err, domain.ErrConflict):
		return cfotel.OutcomeConflict
	default:
		return cfotel.OutcomeError
	}
}

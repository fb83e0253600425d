package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Strob0t/productapi/internal/domain"
	"github.com/Strob0t/productapi/internal/domain/product"
	"github.com/Strob0t/productapi/internal/port/database"
	"github.com/Strob0t/productapi/internal/port/messagequeue"
	"github.com/Strob0t/productapi/internal/resilience"
)

// Ensure mockStore implements database.ProductStore at compile time.
var _ database.ProductStore = (*mockStore)(nil)

// mockStore is a minimal in-memory ProductStore for testing.
type mockStore struct {
	products map[string]product.Snapshot
	order    []string

	// Error hooks, set to inject failures.
	getErr    error
	listErr   error
	addErr    error
	updateErr error
	deleteErr error

	// dropBeforeUpdate simulates a concurrent delete between Get and Update.
	dropBeforeUpdate bool
}

func newMockStore() *mockStore {
	return &mockStore{products: make(map[string]product.Snapshot)}
}

func (m *mockStore) Get(_ context.Context, id string) (*product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	snap, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return product.Rehydrate(snap), nil
}

func (m *mockStore) List(_ context.Context) ([]*product.Product, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*product.Product
	for _, id := range m.order {
		if snap, ok := m.products[id]; ok {
			out = append(out, product.Rehydrate(snap))
		}
	}
	return out, nil
}

func (m *mockStore) Add(_ context.Context, p *product.Product) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.products[p.ID()] = p.Snapshot()
	m.order = append(m.order, p.ID())
	return nil
}

func (m *mockStore) Update(_ context.Context, p *product.Product) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.dropBeforeUpdate {
		delete(m.products, p.ID())
	}
	cur, ok := m.products[p.ID()]
	if !ok {
		return nil
	}
	if cur.Version != p.Version() {
		return domain.ErrConflict
	}
	snap := p.Snapshot()
	snap.Version++
	m.products[p.ID()] = snap
	p.SetVersion(snap.Version)
	return nil
}

func (m *mockStore) Delete(_ context.Context, id string) (bool, error) {
	if m.deleteErr != nil {
		return false, m.deleteErr
	}
	_, ok := m.products[id]
	delete(m.products, id)
	return ok, nil
}

// recordingPublisher captures published messages.
type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	events   []product.Event
	err      error
}

func (r *recordingPublisher) Publish(_ context.Context, subject string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if err := messagequeue.Validate(subject, data); err != nil {
		return err
	}
	var ev product.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	r.subjects = append(r.subjects, subject)
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) Drain() error      { return nil }
func (r *recordingPublisher) IsConnected() bool { return true }

func newService(t *testing.T) (*ProductService, *mockStore, *recordingPublisher) {
	t.Helper()
	store := newMockStore()
	pub := &recordingPublisher{}
	svc := NewProductService(store)
	svc.SetPublisher(pub, resilience.NewBreaker(3, time.Minute))
	return svc, store, pub
}

func widget() product.CreateRequest {
	return product.CreateRequest{
		Name:        "Widget",
		Description: "d",
		Price:       decimal.RequireFromString("10.99"),
		Stock:       5,
	}
}

func TestProductService_CreateAndGetRoundTrip(t *testing.T) {
	svc, _, pub := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, widget())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" || created.Stock != 5 || created.Price.String() != "10.99" {
		t.Errorf("unexpected DTO: %+v", created)
	}

	got, err := svc.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("expected product")
	}
	if got.ID != created.ID || got.Name != created.Name || !got.Price.Equal(created.Price) ||
		got.Stock != created.Stock || !got.CreatedAt.Equal(created.CreatedAt) || got.Version != created.Version {
		t.Errorf("round trip mismatch: %+v vs %+v", got, created)
	}

	if len(pub.subjects) != 1 || pub.subjects[0] != messagequeue.SubjectProductCreated {
		t.Errorf("expected one created event, got %v", pub.subjects)
	}
	if pub.events[0].Product == nil || pub.events[0].Product.ID != created.ID {
		t.Errorf("event payload = %+v", pub.events[0].Product)
	}
}

func TestProductService_CreateInvalid(t *testing.T) {
	svc, store, pub := newService(t)

	req := widget()
	req.Name = "   "
	_, err := svc.Create(context.Background(), req)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(store.products) != 0 {
		t.Error("invalid product must not be stored")
	}
	if len(pub.events) != 0 {
		t.Error("no event expected for a failed create")
	}
}

func TestProductService_CreateStoreError(t *testing.T) {
	svc, store, _ := newService(t)
	store.addErr = errors.New("db down")

	if _, err := svc.Create(context.Background(), widget()); err == nil {
		t.Fatal("expected error")
	}
}

func TestProductService_GetByIDMissing(t *testing.T) {
	svc, _, _ := newService(t)

	got, err := svc.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestProductService_GetByIDStoreError(t *testing.T) {
	svc, store, _ := newService(t)
	store.getErr = errors.New("db down")

	if _, err := svc.GetByID(context.Background(), "x"); err == nil {
		t.Fatal("expected store error to propagate")
	}
}

func TestProductService_GetAll(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	empty, err := svc.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", empty)
	}

	for range 2 {
		if _, err := svc.Create(ctx, widget()); err != nil {
			t.Fatal(err)
		}
	}
	all, err := svc.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2, got %d", len(all))
	}

	store.listErr = errors.New("db down")
	if _, err := svc.GetAll(ctx); err == nil {
		t.Fatal("expected list error")
	}
}

func TestProductService_Update(t *testing.T) {
	svc, _, pub := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, widget())
	if err != nil {
		t.Fatal(err)
	}

	err = svc.Update(ctx, created.ID, product.UpdateRequest{
		Name:        "Gadget",
		Description: "new",
		Price:       decimal.RequireFromString("20.99"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := svc.GetByID(ctx, created.ID)
	if got.Name != "Gadget" || got.Description != "new" || got.Price.String() != "20.99" {
		t.Errorf("details not updated: %+v", got)
	}
	if got.Stock != 5 {
		t.Errorf("stock changed to %d", got.Stock)
	}
	if got.UpdatedAt == nil || !got.UpdatedAt.After(got.CreatedAt) {
		t.Errorf("updated_at %v not after created_at %v", got.UpdatedAt, got.CreatedAt)
	}
	if got.Version != 2 {
		t.Errorf("version = %d, want 2", got.Version)
	}

	if last := pub.subjects[len(pub.subjects)-1]; last != messagequeue.SubjectProductUpdated {
		t.Errorf("last event subject = %s", last)
	}
}

func TestProductService_UpdateMissing(t *testing.T) {
	svc, store, pub := newService(t)

	err := svc.Update(context.Background(), "missing", product.UpdateRequest{Name: "x"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(store.products) != 0 || len(pub.events) != 0 {
		t.Error("expected no mutation and no event")
	}
}

func TestProductService_UpdateInvalidLeavesStoreUnchanged(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, widget())
	err := svc.Update(ctx, created.ID, product.UpdateRequest{
		Name:  "",
		Price: decimal.RequireFromString("1"),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if store.products[created.ID].Name != "Widget" {
		t.Error("stored product changed on invalid update")
	}
}

func TestProductService_UpdateConflict(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, widget())
	store.updateErr = domain.ErrConflict

	err := svc.UpdateStock(ctx, created.ID, 1)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestProductService_UpdateAfterConcurrentDelete(t *testing.T) {
	svc, store, pub := newService(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, widget())
	store.dropBeforeUpdate = true

	if err := svc.UpdateStock(ctx, created.ID, 1); err != nil {
		t.Fatalf("expected success when delete wins, got %v", err)
	}
	if len(pub.events) != 1 {
		t.Errorf("expected only the created event, got %d events", len(pub.events))
	}
}

func TestProductService_UpdateStock(t *testing.T) {
	svc, _, pub := newService(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, widget())

	if err := svc.UpdateStock(ctx, created.ID, 3); err != nil {
		t.Fatalf("UpdateStock: %v", err)
	}
	got, _ := svc.GetByID(ctx, created.ID)
	if got.Stock != 3 || got.UpdatedAt == nil {
		t.Errorf("unexpected product: %+v", got)
	}
	if last := pub.events[len(pub.events)-1]; last.Type != product.EventStockUpdated || last.Product.Stock != 3 {
		t.Errorf("unexpected event: %+v", last)
	}

	if err := svc.UpdateStock(ctx, created.ID, -1); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err := svc.UpdateStock(ctx, "missing", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProductService_DeleteIdempotent(t *testing.T) {
	svc, _, pub := newService(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, widget())

	for range 2 {
		if err := svc.Delete(ctx, created.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		got, err := svc.GetByID(ctx, created.ID)
		if err != nil || got != nil {
			t.Fatalf("expected absent after delete, got %+v err=%v", got, err)
		}
	}

	// created + one deleted; the repeat removes nothing and stays silent.
	if len(pub.events) != 2 {
		t.Fatalf("expected 2 events, got %v", pub.subjects)
	}
	last := pub.events[1]
	if last.Type != product.EventDeleted || last.ProductID != created.ID || last.Product != nil {
		t.Errorf("unexpected delete event: %+v", last)
	}
}

func TestProductService_DeleteUnknownPublishesNothing(t *testing.T) {
	svc, _, pub := newService(t)
	ctx := context.Background()

	for _, id := range []string{"no-such-product", "6f1c1f9e-5d8a-4a51-9a37-3b1c4bd2e0a1", "no-such-product"} {
		if err := svc.Delete(ctx, id); err != nil {
			t.Fatalf("Delete(%q): %v", id, err)
		}
	}
	if len(pub.subjects) != 0 {
		t.Fatalf("expected no events, got %v", pub.subjects)
	}
}

func TestProductService_DeleteStoreError(t *testing.T) {
	svc, store, _ := newService(t)
	store.deleteErr = errors.New("db down")

	if err := svc.Delete(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
}

func TestProductService_PublishFailureIsNotReturned(t *testing.T) {
	svc, _, pub := newService(t)
	pub.err = errors.New("nats down")
	ctx := context.Background()

	// Enough failures to open the breaker; every call still succeeds.
	for range 5 {
		if _, err := svc.Create(ctx, widget()); err != nil {
			t.Fatalf("publish failure leaked into Create: %v", err)
		}
	}
	if svc.breaker.State() != resilience.StateOpen {
		t.Errorf("breaker state = %s, want open", svc.breaker.State())
	}
}

func TestProductService_NoPublisher(t *testing.T) {
	svc := NewProductService(newMockStore())
	if _, err := svc.Create(context.Background(), widget()); err != nil {
		t.Fatalf("Create without publisher: %v", err)
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{domain.ErrNotFound, "not_found"},
		{domain.ErrValidation, "invalid"},
		{domain.ErrConflict, "conflict"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		if got := outcome(tt.err); got != tt.want {
			t.Errorf("outcome(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

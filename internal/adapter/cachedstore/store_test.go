package cachedstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Strob0t/productapi/internal/adapter/cachedstore"
	"github.com/Strob0t/productapi/internal/adapter/memory"
	"github.com/Strob0t/productapi/internal/domain"
	"github.com/Strob0t/productapi/internal/domain/product"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
	err  error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.data, key)
	return nil
}

func (m *memCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// countingStore counts Get calls reaching the backing store.
type countingStore struct {
	*memory.Store
	gets int
}

func (c *countingStore) Get(ctx context.Context, id string) (*product.Product, error) {
	c.gets++
	return c.Store.Get(ctx, id)
}

func setup(t *testing.T) (*cachedstore.Store, *countingStore, *memCache) {
	t.Helper()
	inner := &countingStore{Store: memory.NewStore()}
	c := newMemCache()
	return cachedstore.New(inner, c, time.Minute), inner, c
}

func newProduct(t *testing.T) *product.Product {
	t.Helper()
	p, err := product.New("Widget", "d", decimal.RequireFromString("10.99"), 5)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestStore_AddPopulatesCache(t *testing.T) {
	s, inner, c := setup(t)
	ctx := context.Background()
	p := newProduct(t)

	if err := s.Add(ctx, p); err != nil {
		t.Fatal(err)
	}
	if !c.has(cachedstore.Key(p.ID())) {
		t.Fatal("expected cache entry after Add")
	}

	got, err := s.Get(ctx, p.ID())
	if err != nil {
		t.Fatal(err)
	}
	if inner.gets != 0 {
		t.Errorf("expected cache hit, store was read %d times", inner.gets)
	}
	if got.Name() != "Widget" || !got.Price().Equal(p.Price()) || got.Version() != 1 {
		t.Errorf("unexpected cached product: %+v", got.Snapshot())
	}
}

func TestStore_ReadThrough(t *testing.T) {
	s, inner, c := setup(t)
	ctx := context.Background()
	p := newProduct(t)

	// Bypass the decorator so the cache starts cold.
	if err := inner.Add(ctx, p); err != nil {
		t.Fatal(err)
	}

	for range 3 {
		if _, err := s.Get(ctx, p.ID()); err != nil {
			t.Fatal(err)
		}
	}
	if inner.gets != 1 {
		t.Errorf("expected 1 store read, got %d", inner.gets)
	}
	if !c.has(cachedstore.Key(p.ID())) {
		t.Error("expected cache to be populated")
	}
}

func TestStore_CachedUntilInvalidated(t *testing.T) {
	s, inner, _ := setup(t)
	ctx := context.Background()
	p := newProduct(t)
	if err := s.Add(ctx, p); err != nil {
		t.Fatal(err)
	}

	// A write that skips the decorator is not visible through the cache.
	direct, _ := inner.Store.Get(ctx, p.ID())
	_ = direct.UpdateStock(1)
	if err := inner.Update(ctx, direct); err != nil {
		t.Fatal(err)
	}
	cached, _ := s.Get(ctx, p.ID())
	if cached.Stock() != 5 {
		t.Fatalf("expected cached stock 5, got %d", cached.Stock())
	}

	// A write through the decorator invalidates.
	loaded, _ := inner.Store.Get(ctx, p.ID())
	_ = loaded.UpdateStock(3)
	if err := s.Update(ctx, loaded); err != nil {
		t.Fatal(err)
	}
	fresh, _ := s.Get(ctx, p.ID())
	if fresh.Stock() != 3 || fresh.Version() != 3 {
		t.Fatalf("expected stock 3 version 3, got %+v", fresh.Snapshot())
	}
}

func TestStore_ConflictStillEvicts(t *testing.T) {
	s, _, c := setup(t)
	ctx := context.Background()
	p := newProduct(t)
	if err := s.Add(ctx, p); err != nil {
		t.Fatal(err)
	}

	stale, _ := s.Get(ctx, p.ID())
	fresh, _ := s.Get(ctx, p.ID())
	_ = fresh.UpdateStock(1)
	if err := s.Update(ctx, fresh); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, p.ID()); err != nil { // repopulate
		t.Fatal(err)
	}

	_ = stale.UpdateStock(2)
	if err := s.Update(ctx, stale); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if c.has(cachedstore.Key(p.ID())) {
		t.Error("expected cache entry dropped after conflict")
	}
}

func TestStore_DeleteEvicts(t *testing.T) {
	s, _, c := setup(t)
	ctx := context.Background()
	p := newProduct(t)
	if err := s.Add(ctx, p); err != nil {
		t.Fatal(err)
	}

	if removed, err := s.Delete(ctx, p.ID()); err != nil || !removed {
		t.Fatalf("Delete: removed=%t err=%v", removed, err)
	}
	if c.has(cachedstore.Key(p.ID())) {
		t.Error("expected cache entry removed")
	}
	if _, err := s.Get(ctx, p.ID()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_CacheFailureFallsBackToStore(t *testing.T) {
	s, inner, c := setup(t)
	ctx := context.Background()
	p := newProduct(t)
	if err := inner.Add(ctx, p); err != nil {
		t.Fatal(err)
	}

	c.err = errors.New("cache down")
	got, err := s.Get(ctx, p.ID())
	if err != nil {
		t.Fatalf("expected store fallback, got %v", err)
	}
	if got.ID() != p.ID() {
		t.Errorf("got %s, want %s", got.ID(), p.ID())
	}
}

func TestStore_ListIsNotCached(t *testing.T) {
	s, _, c := setup(t)
	ctx := context.Background()
	if err := s.Add(ctx, newProduct(t)); err != nil {
		t.Fatal(err)
	}
	before := c.gets

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 product, got %d", len(list))
	}
	if c.gets != before {
		t.Error("List must not consult the cache")
	}
}

// gatedStore pauses the first Get after it has loaded the row, so a write
// can run between the load and the cache fill.
type gatedStore struct {
	*memory.Store
	once    sync.Once
	loaded  chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		Store:   memory.NewStore(),
		loaded:  make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedStore) Get(ctx context.Context, id string) (*product.Product, error) {
	p, err := g.Store.Get(ctx, id)
	g.once.Do(func() {
		close(g.loaded)
		<-g.release
	})
	return p, err
}

type getResult struct {
	p   *product.Product
	err error
}

// startColdGet runs s.Get in the background and returns once the inner
// store has loaded the row.
func startColdGet(s *cachedstore.Store, inner *gatedStore, id string) <-chan getResult {
	done := make(chan getResult, 1)
	go func() {
		p, err := s.Get(context.Background(), id)
		done <- getResult{p, err}
	}()
	<-inner.loaded
	return done
}

func TestStore_GetRacingDeleteDoesNotResurrect(t *testing.T) {
	inner := newGatedStore()
	c := newMemCache()
	s := cachedstore.New(inner, c, time.Minute)
	ctx := context.Background()

	p := newProduct(t)
	if err := inner.Add(ctx, p); err != nil {
		t.Fatal(err)
	}

	done := startColdGet(s, inner, p.ID())
	if _, err := s.Delete(ctx, p.ID()); err != nil {
		t.Fatal(err)
	}
	close(inner.release)
	if res := <-done; res.err != nil {
		t.Fatalf("in-flight Get: %v", res.err)
	}

	if c.has(cachedstore.Key(p.ID())) {
		t.Fatal("deleted product was written back to the cache")
	}
	if _, err := s.Get(ctx, p.ID()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestStore_GetRacingUpdateDoesNotCacheStaleVersion(t *testing.T) {
	inner := newGatedStore()
	c := newMemCache()
	s := cachedstore.New(inner, c, time.Minute)
	ctx := context.Background()

	p := newProduct(t)
	if err := inner.Add(ctx, p); err != nil {
		t.Fatal(err)
	}

	done := startColdGet(s, inner, p.ID())
	writer, err := inner.Store.Get(ctx, p.ID())
	if err != nil {
		t.Fatal(err)
	}
	_ = writer.UpdateStock(9)
	if err := s.Update(ctx, writer); err != nil {
		t.Fatal(err)
	}
	close(inner.release)
	<-done

	got, err := s.Get(ctx, p.ID())
	if err != nil {
		t.Fatal(err)
	}
	if got.Version() != 2 || got.Stock() != 9 {
		t.Fatalf("expected version 2 stock 9, got %+v", got.Snapshot())
	}
}

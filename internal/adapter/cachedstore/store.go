// Package cachedstore decorates a ProductStore with a read-through cache.
package cachedstore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Strob0t/productapi/internal/domain/product"
	"github.com/Strob0t/productapi/internal/port/cache"
	"github.com/Strob0t/productapi/internal/port/database"
)

const keyPrefix = "product:"

// Key returns the cache key for a product id.
func Key(id string) string { return keyPrefix + id }

// Store caches single-product reads of the wrapped store. Writes go to the
// wrapped store first; the cache entry is refreshed on Add and dropped on
// Update and Delete. List always reads through.
//
// A read-through fill is skipped if the key was evicted while the row was
// being loaded, so a Get racing a Delete or Update never caches the row it
// read before the write.
type Store struct {
	inner database.ProductStore
	cache *cache.Typed[product.Snapshot]
	ttl   time.Duration

	mu    sync.Mutex
	fills map[string]*fill
}

// fill tracks the in-flight loads of one key.
type fill struct {
	gen     uint64
	readers int
}

// New wraps inner with c. ttl is passed on every cache write.
func New(inner database.ProductStore, c cache.Cache, ttl time.Duration) *Store {
	return &Store{
		inner: inner,
		cache: cache.NewTyped[product.Snapshot](c),
		ttl:   ttl,
		fills: make(map[string]*fill),
	}
}

var _ database.ProductStore = (*Store)(nil)

func (s *Store) Get(ctx context.Context, id string) (*product.Product, error) {
	snap, ok, err := s.cache.Get(ctx, Key(id))
	if err != nil {
		slog.WarnContext(ctx, "product cache read failed", "product_id", id, "error", err)
	}
	if ok {
		return product.Rehydrate(snap), nil
	}

	f, gen := s.beginFill(id)
	p, err := s.inner.Get(ctx, id)
	if err != nil {
		s.endFill(ctx, id, f, gen, nil)
		return nil, err
	}
	s.endFill(ctx, id, f, gen, p)
	return p, nil
}

func (s *Store) List(ctx context.Context) ([]*product.Product, error) {
	return s.inner.List(ctx)
}

func (s *Store) Add(ctx context.Context, p *product.Product) error {
	if err := s.inner.Add(ctx, p); err != nil {
		return err
	}
	s.put(ctx, p)
	return nil
}

// Update drops the cache entry whatever the outcome: after a conflict the
// cached copy is likely stale too.
func (s *Store) Update(ctx context.Context, p *product.Product) error {
	err := s.inner.Update(ctx, p)
	s.evict(ctx, p.ID())
	return err
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := s.inner.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	s.evict(ctx, id)
	return removed, nil
}

// Ping forwards to the wrapped store when it supports health checks.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.inner.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Store) put(ctx context.Context, p *product.Product) {
	if err := s.cache.Set(ctx, Key(p.ID()), p.Snapshot(), s.ttl); err != nil {
		slog.WarnContext(ctx, "product cache write failed", "product_id", p.ID(), "error", err)
	}
}

func (s *Store) beginFill(id string) (*fill, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fills[id]
	if !ok {
		f = &fill{}
		s.fills[id] = f
	}
	f.readers++
	return f, f.gen
}

// endFill caches p unless id was evicted since beginFill. The check and the
// write happen under s.mu so an eviction cannot slip in between.
func (s *Store) endFill(ctx context.Context, id string, f *fill, gen uint64, p *product.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p != nil && f.gen == gen {
		s.put(ctx, p)
	}
	f.readers--
	if f.readers == 0 {
		delete(s.fills, id)
	}
}

func (s *Store) evict(ctx context.Context, id string) {
	s.mu.Lock()
	if f, ok := s.fills[id]; ok {
		f.gen++
	}
	s.mu.Unlock()

	if err := s.cache.Remove(ctx, Key(id)); err != nil {
		slog.ErrorContext(ctx, "product cache invalidation failed", "product_id", id, "error", err)
	}
}

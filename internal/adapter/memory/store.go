// Package memory implements database.ProductStore over an in-process map.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Strob0t/productapi/internal/domain"
	"github.com/Strob0t/productapi/internal/domain/product"
)

// Store keeps product snapshots in a mutex-guarded map. Callers never share
// memory with the stored copies.
type Store struct {
	mu       sync.RWMutex
	products map[string]product.Snapshot
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{products: make(map[string]product.Snapshot)}
}

func (s *Store) Get(_ context.Context, id string) (*product.Product, error) {
	s.mu.RLock()
	snap, ok := s.products[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("get product %s: %w", id, domain.ErrNotFound)
	}
	return product.Rehydrate(snap), nil
}

// List returns all products ordered by creation time, then id.
func (s *Store) List(_ context.Context) ([]*product.Product, error) {
	s.mu.RLock()
	snaps := make([]product.Snapshot, 0, len(s.products))
	for _, snap := range s.products {
		snaps = append(snaps, snap)
	}
	s.mu.RUnlock()

	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].CreatedAt.Equal(snaps[j].CreatedAt) {
			return snaps[i].ID < snaps[j].ID
		}
		return snaps[i].CreatedAt.Before(snaps[j].CreatedAt)
	})

	out := make([]*product.Product, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, product.Rehydrate(snap))
	}
	return out, nil
}

func (s *Store) Add(_ context.Context, p *product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[p.ID()]; exists {
		return fmt.Errorf("add product %s: %w", p.ID(), domain.ErrConflict)
	}
	s.products[p.ID()] = p.Snapshot()
	return nil
}

// Update replaces the stored product if its version still matches p's.
// A missing id is a no-op. On success p carries the new version.
func (s *Store) Update(_ context.Context, p *product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[p.ID()]
	if !ok {
		return nil
	}
	if current.Version != p.Version() {
		return fmt.Errorf("update product %s: %w", p.ID(), domain.ErrConflict)
	}

	snap := p.Snapshot()
	snap.Version++
	s.products[p.ID()] = snap
	p.SetVersion(snap.Version)
	return nil
}

func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.products[id]
	delete(s.products, id)
	return ok, nil
}

// Len reports the number of stored products.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Strob0t/productapi/internal/domain"
	"github.com/Strob0t/productapi/internal/domain/product"
)

// Store implements database.ProductStore using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const productColumns = `id::text, name, description, price::text, stock, version, created_at, updated_at`

func (s *Store) Get(ctx context.Context, id string) (*product.Product, error) {
	if !validID(id) {
		return nil, fmt.Errorf("get product %s: %w", id, domain.ErrNotFound)
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if err != nil {
		return nil, notFoundWrap(err, "get product %s", id)
	}
	return p, nil
}

func (s *Store) List(ctx context.Context) ([]*product.Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]*product.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) Add(ctx context.Context, p *product.Product) error {
	snap := p.Snapshot()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO products (id, name, description, price, stock, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)`,
		snap.ID, snap.Name, snap.Description, snap.Price.String(), snap.Stock,
		snap.Version, snap.CreatedAt, snap.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("add product %s: %w", snap.ID, domain.ErrConflict)
		}
		return fmt.Errorf("add product %s: %w", snap.ID, err)
	}
	return nil
}

// Update writes p if the stored version still matches p.Version(), bumping
// the version. A missing id is a no-op; a version mismatch is ErrConflict.
func (s *Store) Update(ctx context.Context, p *product.Product) error {
	snap := p.Snapshot()
	if !validID(snap.ID) {
		return nil
	}

	var newVersion int64
	err := s.pool.QueryRow(ctx,
		`UPDATE products
		 SET name = $2, description = $3, price = $4::numeric, stock = $5,
		     updated_at = $6, version = version + 1
		 WHERE id = $1 AND version = $7
		 RETURNING version`,
		snap.ID, snap.Name, snap.Description, snap.Price.String(), snap.Stock,
		snap.UpdatedAt, snap.Version).Scan(&newVersion)
	if err == nil {
		p.SetVersion(newVersion)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("update product %s: %w", snap.ID, err)
	}

	// No row matched: either the product is gone or another writer won.
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, snap.ID).Scan(&exists); err != nil {
		return fmt.Errorf("update product %s: %w", snap.ID, err)
	}
	if exists {
		return fmt.Errorf("update product %s: %w", snap.ID, domain.ErrConflict)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete product %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanProduct(row scannable) (*product.Product, error) {
	var (
		snap  product.Snapshot
		price string
	)
	if err := row.Scan(&snap.ID, &snap.Name, &snap.Description, &price, &snap.Stock,
		&snap.Version, &snap.CreatedAt, &snap.UpdatedAt); err != nil {
		return nil, err
	}

	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	snap.Price = d
	snap.CreatedAt = snap.CreatedAt.UTC()
	if snap.UpdatedAt != nil {
		t := snap.UpdatedAt.UTC()
		snap.UpdatedAt = &t
	}
	return product.Rehydrate(snap), nil
}

// Package product defines the Product entity, its validation rules and the
// flat data shapes that cross the API and persistence boundaries.
package product

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Strob0t/productapi/internal/domain"
)

const (
	MaxNameLength        = 255
	MaxDescriptionLength = 1000
	// PriceScale is the number of decimal places a price may carry.
	PriceScale = 2
	// MaxStock matches the integer column.
	MaxStock = math.MaxInt32
)

// maxPrice matches the numeric(18,2) column: 16 integer digits.
var maxPrice = decimal.New(1, 16)

// now returns the current time at the precision PostgreSQL stores.
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Product is a sellable item. The zero value is not a valid product; use New.
type Product struct {
	id          string
	name        string
	description string
	price       decimal.Decimal
	stock       int
	createdAt   time.Time
	updatedAt   *time.Time
	version     int64
}

// New validates the given fields and builds a Product with a fresh identifier.
// Either every rule passes and a complete Product is returned, or the error
// wraps domain.ErrValidation and no Product exists.
func New(name, description string, price decimal.Decimal, stock int) (*Product, error) {
	if err := validateDetails(name, description, price); err != nil {
		return nil, err
	}
	if err := validateStock(stock); err != nil {
		return nil, err
	}
	return &Product{
		id:          uuid.NewString(),
		name:        name,
		description: description,
		price:       price,
		stock:       stock,
		createdAt:   now(),
		version:     1,
	}, nil
}

// UpdateDetails replaces name, description and price. Nothing changes when
// validation fails.
func (p *Product) UpdateDetails(name, description string, price decimal.Decimal) error {
	if err := validateDetails(name, description, price); err != nil {
		return err
	}
	p.name = name
	p.description = description
	p.price = price
	p.touch()
	return nil
}

// UpdateStock sets the stock level.
func (p *Product) UpdateStock(stock int) error {
	if err := validateStock(stock); err != nil {
		return err
	}
	p.stock = stock
	p.touch()
	return nil
}

// touch records a mutation. updatedAt is kept strictly after createdAt even
// when the clock has not advanced past the store's precision.
func (p *Product) touch() {
	t := now()
	if !t.After(p.createdAt) {
		t = p.createdAt.Add(time.Microsecond)
	}
	p.updatedAt = &t
}

func (p *Product) ID() string             { return p.id }
func (p *Product) Name() string           { return p.name }
func (p *Product) Description() string    { return p.description }
func (p *Product) Price() decimal.Decimal { return p.price }
func (p *Product) Stock() int             { return p.stock }
func (p *Product) CreatedAt() time.Time   { return p.createdAt }
func (p *Product) Version() int64         { return p.version }

// UpdatedAt returns the time of the last mutation, or nil if there was none.
func (p *Product) UpdatedAt() *time.Time {
	if p.updatedAt == nil {
		return nil
	}
	t := *p.updatedAt
	return &t
}

// SetVersion records the version a store assigned after persisting p.
// Only store adapters call this.
func (p *Product) SetVersion(v int64) {
	p.version = v
}

func validateDetails(name, description string, price decimal.Decimal) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", domain.ErrValidation, MaxNameLength)
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", domain.ErrValidation, MaxDescriptionLength)
	}
	if price.IsNegative() {
		return fmt.Errorf("%w: price must be greater than or equal to zero", domain.ErrValidation)
	}
	if !price.Equal(price.Round(PriceScale)) {
		return fmt.Errorf("%w: price must have at most %d decimal places", domain.ErrValidation, PriceScale)
	}
	if price.GreaterThanOrEqual(maxPrice) {
		return fmt.Errorf("%w: price exceeds maximum", domain.ErrValidation)
	}
	return nil
}

func validateStock(stock int) error {
	if stock < 0 {
		return fmt.Errorf("%w: stock must be greater than or equal to zero", domain.ErrValidation)
	}
	if stock > MaxStock {
		return fmt.Errorf("%w: stock exceeds maximum", domain.ErrValidation)
	}
	return nil
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Typed stores values of T in a Cache as JSON.
type Typed[T any] struct {
	c Cache
}

// NewTyped wraps c for values of type T.
func NewTyped[T any](c Cache) *Typed[T] {
	return &Typed[T]{c: c}
}

// Get returns the value stored under key. ok is false when the key is absent.
func (t *Typed[T]) Get(ctx context.Context, key string) (v T, ok bool, err error) {
	data, found, err := t.c.Get(ctx, key)
	if err != nil || !found {
		return v, false, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores v under key with the given ttl.
func (t *Typed[T]) Set(ctx context.Context, key string, v T, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	return t.c.Set(ctx, key, data, ttl)
}

// Remove deletes key.
func (t *Typed[T]) Remove(ctx context.Context, key string) error {
	return t.c.Delete(ctx, key)
}

// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict (optimistic locking)
// or an attempt to insert an entity whose identifier is already taken.
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates caller-supplied field content was rejected.
// Wrapped errors carry the offending field in their message.
var ErrValidation = errors.New("validation error")

package domain

import "errors"

var (
	// ErrNotFound is returned when a product does not exist or is not
	// visible (soft-deleted) in a context where visibility matters
	ErrNotFound = errors.New("product not found")

	// ErrDuplicateSKU is returned when a sku collides with any existing
	// record, soft-deleted ones included
	ErrDuplicateSKU = errors.New("sku already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrVersionConflict is returned when a conditional update targeted an
	// existing active product but the version token was stale
	ErrVersionConflict = errors.New("version conflict")

	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
)

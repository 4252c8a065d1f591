package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a catalog product
type Product struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	SKU         string          `json:"sku" db:"sku" validate:"required,min=1,max=100"`
	Name        string          `json:"name" db:"name" validate:"required,min=1,max=200"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Stock       int             `json:"stock" db:"stock" validate:"gte=0"`
	Category    *string         `json:"category,omitempty" db:"category"`
	Description *string         `json:"description,omitempty" db:"description"`
	Version     int64           `json:"version" db:"version"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsDeleted reports whether the product has been soft-deleted.
func (p *Product) IsDeleted() bool {
	return p.DeletedAt != nil
}

// ProductUpdate carries the replacement field values for a conditional update.
// The version token travels separately so it cannot be confused with a field.
type ProductUpdate struct {
	SKU         string          `json:"sku" validate:"required,min=1,max=100"`
	Name        string          `json:"name" validate:"required,min=1,max=200"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Category    *string         `json:"category,omitempty"`
	Description *string         `json:"description,omitempty"`
}

// SearchCriteria describes one filtered, paginated product query.
// Unset filters (blank strings, nil bounds) are omitted from the query.
type SearchCriteria struct {
	Page           int
	Size           int
	Sort           string
	Category       string
	MinPrice       *decimal.Decimal
	MaxPrice       *decimal.Decimal
	Text           string
	IncludeDeleted bool
}

// PageResult is one page of search results plus global totals.
type PageResult struct {
	Content       []*Product `json:"content"`
	Page          int        `json:"page"`
	Size          int        `json:"size"`
	TotalElements int64      `json:"total_elements"`
	TotalPages    int        `json:"total_pages"`
}

// ProductRepository defines the interface for product data access.
//
// UpdateIfVersionMatches and SoftDelete are single-statement conditional
// writes: both report rows affected (0 or 1) and never lock. Callers
// disambiguate a zero-row update with ExistsActive.
type ProductRepository interface {
	// Create persists a new product; the sku unique index is the
	// authoritative duplicate guard.
	Create(ctx context.Context, product *Product) error

	// GetByID retrieves a product by ID, soft-deleted or not.
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// ExistsBySKU reports whether any record (deleted included) holds the sku.
	ExistsBySKU(ctx context.Context, sku string) (bool, error)

	// ExistsActive reports whether the product exists and is not soft-deleted.
	ExistsActive(ctx context.Context, id uuid.UUID) (bool, error)

	// UpdateIfVersionMatches applies fields only when the record is active
	// and at expectedVersion, bumping version by one.
	UpdateIfVersionMatches(ctx context.Context, id uuid.UUID, fields ProductUpdate, expectedVersion int64, updatedAt time.Time) (int64, error)

	// SoftDelete marks an active product deleted, bumping version by one.
	SoftDelete(ctx context.Context, id uuid.UUID, deletedAt time.Time) (int64, error)

	// Search returns the page of products matching the criteria.
	Search(ctx context.Context, criteria SearchCriteria) (*PageResult, error)
}

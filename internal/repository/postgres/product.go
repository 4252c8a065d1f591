package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jorgeandreudev/retail-platform/internal/domain"
)

const uniqueViolationCode = "23505"

// sortColumns whitelists the API sort fields against their columns.
var sortColumns = map[string]string{
	"createdat": "created_at",
	"updatedat": "updated_at",
	"name":      "name",
	"sku":       "sku",
	"price":     "price",
	"stock":     "stock",
	"category":  "category",
	"version":   "version",
}

// ProductRepository implements domain.ProductRepository for PostgreSQL.
//
// All mutations are single conditional statements, so the check and the
// act happen in one round trip and no session-level locking is needed.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new PostgreSQL product repository
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a new product. The unconditional unique index on sku is
// the authoritative duplicate guard; a violation maps to ErrDuplicateSKU.
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, sku, name, price, stock, category, description, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.SKU,
		product.Name,
		product.Price,
		product.Stock,
		product.Category,
		product.Description,
		product.Version,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSKU
		}
		return err
	}

	return nil
}

// GetByID retrieves a product by ID, soft-deleted or not. Visibility
// filtering for lookups belongs to the caller, unlike Search.
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT id, sku, name, price, stock, category, description, version, created_at, updated_at, deleted_at
		FROM products
		WHERE id = $1
	`

	var product domain.Product
	err := r.db.GetContext(ctx, &product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &product, nil
}

// ExistsBySKU reports whether any record, deleted included, holds the sku.
func (r *ProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM products WHERE sku = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, sku); err != nil {
		return false, err
	}

	return exists, nil
}

// ExistsActive reports whether the product exists and is not soft-deleted.
func (r *ProductRepository) ExistsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1 AND deleted_at IS NULL)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, err
	}

	return exists, nil
}

// UpdateIfVersionMatches performs the compare-and-swap update: the write
// lands only when the record is active and still at expectedVersion. It
// returns the rows affected (0 or 1); a zero-row outcome is not classified
// here, callers disambiguate with ExistsActive.
func (r *ProductRepository) UpdateIfVersionMatches(
	ctx context.Context,
	id uuid.UUID,
	fields domain.ProductUpdate,
	expectedVersion int64,
	updatedAt time.Time,
) (int64, error) {
	query := `
		UPDATE products
		SET sku = $1, name = $2, price = $3, stock = $4, category = $5, description = $6,
		    updated_at = $7, version = version + 1
		WHERE id = $8 AND deleted_at IS NULL AND version = $9
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		fields.SKU,
		fields.Name,
		fields.Price,
		fields.Stock,
		fields.Category,
		fields.Description,
		updatedAt,
		id,
		expectedVersion,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrDuplicateSKU
		}
		return 0, err
	}

	return result.RowsAffected()
}

// SoftDelete marks an active product deleted. Zero rows affected means the
// record never existed or was already deleted; both look the same here.
func (r *ProductRepository) SoftDelete(ctx context.Context, id uuid.UUID, deletedAt time.Time) (int64, error) {
	query := `
		UPDATE products
		SET deleted_at = $1, updated_at = $1, version = version + 1
		WHERE id = $2 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, deletedAt, id)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// Search composes a conjunction of the optional predicates in the criteria,
// counts the global matches and returns the requested page.
func (r *ProductRepository) Search(ctx context.Context, criteria domain.SearchCriteria) (*domain.PageResult, error) {
	where, args := buildFilters(criteria)

	countQuery := `SELECT COUNT(*) FROM products` + where

	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, err
	}

	orderBy := parseSort(criteria.Sort)

	pageQuery := fmt.Sprintf(
		`SELECT id, sku, name, price, stock, category, description, version, created_at, updated_at, deleted_at
		FROM products%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		where, orderBy, len(args)+1, len(args)+2,
	)
	args = append(args, criteria.Size, criteria.Page*criteria.Size)

	products := []*domain.Product{}
	if err := r.db.SelectContext(ctx, &products, pageQuery, args...); err != nil {
		return nil, err
	}

	return &domain.PageResult{
		Content:       products,
		Page:          criteria.Page,
		Size:          criteria.Size,
		TotalElements: total,
		TotalPages:    int(math.Ceil(float64(total) / float64(criteria.Size))),
	}, nil
}

// buildFilters folds the optional criteria into a WHERE clause, skipping
// absent filters. Predicates are combined with AND only.
func buildFilters(criteria domain.SearchCriteria) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}

	if !criteria.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}

	if category := strings.TrimSpace(criteria.Category); category != "" {
		args = append(args, strings.ToLower(category))
		conditions = append(conditions, fmt.Sprintf("LOWER(category) = $%d", len(args)))
	}

	if criteria.MinPrice != nil {
		args = append(args, *criteria.MinPrice)
		conditions = append(conditions, fmt.Sprintf("price >= $%d", len(args)))
	}

	if criteria.MaxPrice != nil {
		args = append(args, *criteria.MaxPrice)
		conditions = append(conditions, fmt.Sprintf("price <= $%d", len(args)))
	}

	if text := strings.TrimSpace(criteria.Text); text != "" {
		args = append(args, "%"+strings.ToLower(text)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(COALESCE(description, '')) LIKE $%d)", n, n))
	}

	if len(conditions) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

// parseSort turns a "field,direction" token into an ORDER BY fragment.
// Unknown fields fall back to created_at; only an exact case-insensitive
// "asc" yields ascending, anything else is descending.
func parseSort(sort string) string {
	column := "created_at"
	direction := "DESC"

	if sort != "" {
		parts := strings.SplitN(sort, ",", 2)
		if col, ok := sortColumns[strings.ToLower(strings.TrimSpace(parts[0]))]; ok {
			column = col
		}
		if len(parts) > 1 && strings.EqualFold(strings.TrimSpace(parts[1]), "asc") {
			direction = "ASC"
		}
	}

	return column + " " + direction
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}

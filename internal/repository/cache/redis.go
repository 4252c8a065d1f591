package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jorgeandreudev/retail-platform/internal/domain"
	"github.com/jorgeandreudev/retail-platform/internal/pkg/logger"
)

// CachedProductRepository decorates a domain.ProductRepository with a
// read-through Redis cache for point lookups. Mutations pass straight
// through to the inner repository and invalidate the cached entry, so the
// concurrency-control contract stays entirely with the store.
type CachedProductRepository struct {
	inner  domain.ProductRepository
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedProductRepository wraps repo with a Redis point-lookup cache.
func NewCachedProductRepository(repo domain.ProductRepository, client *redis.Client, ttl time.Duration, log *logger.Logger) *CachedProductRepository {
	return &CachedProductRepository{
		inner:  repo,
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func productKey(id uuid.UUID) string {
	return fmt.Sprintf("product:%s", id.String())
}

// Create passes through; the new product is cached on first read.
func (c *CachedProductRepository) Create(ctx context.Context, product *domain.Product) error {
	return c.inner.Create(ctx, product)
}

// GetByID serves from cache when possible, falling back to the inner
// repository on miss or any cache failure.
func (c *CachedProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	key := productKey(id)

	val, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var product domain.Product
		if err := json.Unmarshal([]byte(val), &product); err == nil {
			return &product, nil
		}
		// Unreadable entry: drop it and fall through to the store.
		c.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Error("Product cache read failed", err)
	}

	product, err := c.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(product); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Error("Product cache write failed", err)
		}
	}

	return product, nil
}

// ExistsBySKU is an advisory pre-check and is never cached.
func (c *CachedProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	return c.inner.ExistsBySKU(ctx, sku)
}

// ExistsActive hits the store directly: it is part of the conditional-update
// disambiguation and must observe the authoritative state.
func (c *CachedProductRepository) ExistsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	return c.inner.ExistsActive(ctx, id)
}

// UpdateIfVersionMatches passes through and invalidates on success.
func (c *CachedProductRepository) UpdateIfVersionMatches(
	ctx context.Context,
	id uuid.UUID,
	fields domain.ProductUpdate,
	expectedVersion int64,
	updatedAt time.Time,
) (int64, error) {
	rows, err := c.inner.UpdateIfVersionMatches(ctx, id, fields, expectedVersion, updatedAt)
	if err == nil && rows > 0 {
		c.invalidate(ctx, id)
	}
	return rows, err
}

// SoftDelete passes through and invalidates on success.
func (c *CachedProductRepository) SoftDelete(ctx context.Context, id uuid.UUID, deletedAt time.Time) (int64, error) {
	rows, err := c.inner.SoftDelete(ctx, id, deletedAt)
	if err == nil && rows > 0 {
		c.invalidate(ctx, id)
	}
	return rows, err
}

// Search always hits the store; result pages are not cached.
func (c *CachedProductRepository) Search(ctx context.Context, criteria domain.SearchCriteria) (*domain.PageResult, error) {
	return c.inner.Search(ctx, criteria)
}

func (c *CachedProductRepository) invalidate(ctx context.Context, id uuid.UUID) {
	if err := c.client.Del(ctx, productKey(id)).Err(); err != nil {
		c.logger.Error("Product cache invalidation failed", err)
	}
}

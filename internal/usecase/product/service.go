package product

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jorgeandreudev/retail-platform/internal/domain"
	"github.com/jorgeandreudev/retail-platform/internal/pkg/logger"
	pkgvalidator "github.com/jorgeandreudev/retail-platform/internal/pkg/validator"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service handles product business logic
type Service struct {
	repo           domain.ProductRepository
	validate       *validator.Validate
	logger         *logger.Logger
	initialVersion int64
}

// NewService creates a new product service. initialVersion seeds the
// optimistic-concurrency counter of newly created products.
func NewService(repo domain.ProductRepository, initialVersion int64, log *logger.Logger) *Service {
	return &Service{
		repo:           repo,
		validate:       pkgvalidator.Get(),
		logger:         log,
		initialVersion: initialVersion,
	}
}

// Create creates a new product. The ExistsBySKU pre-check only buys a
// friendlier error message; the unique index remains the real guard, so a
// racing creator still surfaces ErrDuplicateSKU from the insert itself.
func (s *Service) Create(ctx context.Context, product *domain.Product) error {
	if err := s.validate.Struct(product); err != nil {
		s.logger.Error("Product validation failed", err)
		return domain.ErrInvalidInput
	}
	if product.Price.Sign() < 0 {
		s.logger.Debugf("Rejected negative price %s for sku %s", product.Price, product.SKU)
		return domain.ErrInvalidInput
	}

	exists, err := s.repo.ExistsBySKU(ctx, product.SKU)
	if err != nil {
		s.logger.Error("Failed to check sku existence", err)
		return err
	}
	if exists {
		return domain.ErrDuplicateSKU
	}

	product.Version = s.initialVersion

	if err := s.repo.Create(ctx, product); err != nil {
		s.logger.Error("Failed to create product", err)
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
	}).Info("Product created successfully")

	return nil
}

// GetByID retrieves a product by ID, soft-deleted or not.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Product not found: %s", id)
		} else {
			s.logger.Error("Failed to get product", err)
		}
		return nil, err
	}

	return product, nil
}

// Update applies a conditional update and disambiguates a zero-row outcome:
// the record being active means the version token was stale, otherwise the
// record is gone (or soft-deleted) from the caller's point of view.
func (s *Service) Update(ctx context.Context, id uuid.UUID, fields domain.ProductUpdate, expectedVersion int64) (*domain.Product, error) {
	if err := s.validate.Struct(fields); err != nil {
		s.logger.Error("Product update validation failed", err)
		return nil, domain.ErrInvalidInput
	}
	if fields.Price.Sign() < 0 {
		return nil, domain.ErrInvalidInput
	}

	rows, err := s.repo.UpdateIfVersionMatches(ctx, id, fields, expectedVersion, time.Now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateSKU) {
			return nil, err
		}
		s.logger.Error("Failed to update product", err)
		return nil, err
	}

	if rows == 0 {
		active, err := s.repo.ExistsActive(ctx, id)
		if err != nil {
			s.logger.Error("Failed to check product state after update miss", err)
			return nil, err
		}
		if active {
			s.logger.WithFields(map[string]interface{}{
				"product_id":       id,
				"expected_version": expectedVersion,
			}).Warn("Stale version on product update")
			return nil, domain.ErrVersionConflict
		}
		return nil, domain.ErrNotFound
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to reload product after update", err)
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"product_id": id,
		"version":    updated.Version,
	}).Info("Product updated successfully")

	return updated, nil
}

// Delete soft-deletes a product. A record that never existed and one that
// was already deleted both report zero rows, which collapses to not-found.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	rows, err := s.repo.SoftDelete(ctx, id, time.Now().UTC())
	if err != nil {
		s.logger.Error("Failed to delete product", err)
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	s.logger.WithFields(map[string]interface{}{
		"product_id": id,
	}).Info("Product deleted successfully")

	return nil
}

// Search runs a filtered, paginated query after clamping the paging inputs.
func (s *Service) Search(ctx context.Context, criteria domain.SearchCriteria) (*domain.PageResult, error) {
	if criteria.Size <= 0 || criteria.Size > maxPageSize {
		criteria.Size = defaultPageSize
	}
	if criteria.Page < 0 {
		criteria.Page = 0
	}

	result, err := s.repo.Search(ctx, criteria)
	if err != nil {
		s.logger.Error("Failed to search products", err)
		return nil, err
	}

	return result, nil
}

package handler

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/jorgeandreudev/retail-platform/internal/delivery/http/request"
	"github.com/jorgeandreudev/retail-platform/internal/delivery/http/response"
	"github.com/jorgeandreudev/retail-platform/internal/domain"
	"github.com/jorgeandreudev/retail-platform/internal/pkg/logger"
	"github.com/jorgeandreudev/retail-platform/internal/usecase/product"
)

// ProductHandler handles HTTP requests for products
type ProductHandler struct {
	service *product.Service
	logger  *logger.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *product.Service, log *logger.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  log,
	}
}

// CreateProductRequest represents the request body for creating a product
type CreateProductRequest struct {
	SKU         string          `json:"sku" validate:"required,min=1,max=100"`
	Name        string          `json:"name" validate:"required,min=1,max=200"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Category    *string         `json:"category,omitempty"`
	Description *string         `json:"description,omitempty"`
}

// UpdateProductRequest represents the request body for updating a product.
// Version is the optimistic-concurrency token the caller last read.
type UpdateProductRequest struct {
	SKU         string          `json:"sku" validate:"required,min=1,max=100"`
	Name        string          `json:"name" validate:"required,min=1,max=200"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Category    *string         `json:"category,omitempty"`
	Description *string         `json:"description,omitempty"`
	Version     int64           `json:"version" validate:"gte=0"`
}

// SearchProductsRequest represents the request body for a filtered search
type SearchProductsRequest struct {
	Page           int              `json:"page"`
	Size           int              `json:"size"`
	Sort           string           `json:"sort,omitempty"`
	Category       string           `json:"category,omitempty"`
	MinPrice       *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice       *decimal.Decimal `json:"max_price,omitempty"`
	Text           string           `json:"text,omitempty"`
	IncludeDeleted bool             `json:"include_deleted"`
}

// Create handles POST /api/v1/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product := &domain.Product{
		SKU:         req.SKU,
		Name:        req.Name,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		Description: req.Description,
	}

	if err := h.service.Create(r.Context(), product); err != nil {
		h.handleError(w, err)
		return
	}

	response.Created(w, product)
}

// GetByID handles GET /api/v1/products/{id}
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	product, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, product)
}

// List handles GET /api/v1/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	criteria := domain.SearchCriteria{
		Page:           request.GetIntQuery(r, "page", 0),
		Size:           request.GetIntQuery(r, "size", 20),
		Sort:           r.URL.Query().Get("sort"),
		IncludeDeleted: request.GetBoolQuery(r, "includeDeleted", false),
	}

	result, err := h.service.Search(r.Context(), criteria)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, result)
}

// Search handles POST /api/v1/products/search
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchProductsRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	criteria := domain.SearchCriteria{
		Page:           req.Page,
		Size:           req.Size,
		Sort:           req.Sort,
		Category:       req.Category,
		MinPrice:       req.MinPrice,
		MaxPrice:       req.MaxPrice,
		Text:           req.Text,
		IncludeDeleted: req.IncludeDeleted,
	}

	result, err := h.service.Search(r.Context(), criteria)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, result)
}

// Update handles PUT /api/v1/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req UpdateProductRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	fields := domain.ProductUpdate{
		SKU:         req.SKU,
		Name:        req.Name,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		Description: req.Description,
	}

	updated, err := h.service.Update(r.Context(), id, fields, req.Version)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, updated)
}

// Delete handles DELETE /api/v1/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleError(w, err)
		return
	}

	response.NoContent(w)
}

// handleError handles service layer errors and returns appropriate HTTP responses
func (h *ProductHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Product not found")
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, domain.ErrDuplicateSKU):
		response.Error(w, http.StatusConflict, "SKU already exists")
	case errors.Is(err, domain.ErrVersionConflict):
		response.Error(w, http.StatusConflict, "Product was modified by another request")
	default:
		h.logger.Error("Internal error in product handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}

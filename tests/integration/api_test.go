//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorgeandreudev/retail-platform/internal/config"
	httpDelivery "github.com/jorgeandreudev/retail-platform/internal/delivery/http"
	"github.com/jorgeandreudev/retail-platform/internal/delivery/http/handler"
	"github.com/jorgeandreudev/retail-platform/internal/pkg/cache"
	"github.com/jorgeandreudev/retail-platform/internal/pkg/database"
	"github.com/jorgeandreudev/retail-platform/internal/pkg/logger"
	cacheRepo "github.com/jorgeandreudev/retail-platform/internal/repository/cache"
	"github.com/jorgeandreudev/retail-platform/internal/repository/postgres"
	"github.com/jorgeandreudev/retail-platform/internal/usecase/product"
)

func setupTestServer(t *testing.T) http.Handler {
	cfg, err := config.Load()
	require.NoError(t, err)

	log := logger.New(cfg.Env)

	db, err := database.WaitForDB(cfg, 5, 2*time.Second)
	require.NoError(t, err)

	require.NoError(t, database.RunMigrations(db))

	redisClient, err := cache.WaitForRedis(cfg, 5, 2*time.Second)
	require.NoError(t, err)

	productRepo := postgres.NewProductRepository(db)
	cachedRepo := cacheRepo.NewCachedProductRepository(productRepo, redisClient, cfg.Cache.ProductTTL, log)

	productService := product.NewService(cachedRepo, cfg.Product.InitialVersion, log)
	productHandler := handler.NewProductHandler(productService, log)

	router := httpDelivery.NewRouter(productHandler, cfg, log)
	return router.Setup()
}

func uniqueSKU(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

func createProduct(t *testing.T, server http.Handler, sku string, price float64, category string) map[string]any {
	body := map[string]any{
		"sku":      sku,
		"name":     "Integration Product " + sku,
		"price":    price,
		"stock":    5,
		"category": category,
	}
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	server.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp["data"].(map[string]any)
}

func TestProductCreateAndGet(t *testing.T) {
	server := setupTestServer(t)

	created := createProduct(t, server, uniqueSKU("CRT"), 99.99, "integration")
	assert.Equal(t, float64(0), created["version"])
	productID := created["id"].(string)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/products/%s", productID), nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var getResp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &getResp))
	data := getResp["data"].(map[string]any)
	assert.Equal(t, productID, data["id"])
}

func TestProductDuplicateSKU(t *testing.T) {
	server := setupTestServer(t)

	sku := uniqueSKU("DUP")
	createProduct(t, server, sku, 10.00, "integration")

	body := fmt.Sprintf(`{"sku": %q, "name": "Duplicate", "price": 5.00, "stock": 1}`, sku)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

// A soft-deleted product keeps its sku reserved: re-creating it must fail.
func TestProductDeletedSKUNotReusable(t *testing.T) {
	server := setupTestServer(t)

	sku := uniqueSKU("DEL")
	created := createProduct(t, server, sku, 10.00, "integration")
	productID := created["id"].(string)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/products/%s", productID), nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	body := fmt.Sprintf(`{"sku": %q, "name": "Reborn", "price": 5.00, "stock": 1}`, sku)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func updateRequest(productID, sku string, price float64, version int64) *http.Request {
	body := fmt.Sprintf(`{"sku": %q, "name": "Updated", "price": %.2f, "stock": 5, "version": %d}`, sku, price, version)
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/v1/products/%s", productID), bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestProductUpdateVersionLifecycle(t *testing.T) {
	server := setupTestServer(t)

	sku := uniqueSKU("UPD")
	created := createProduct(t, server, sku, 10.00, "integration")
	productID := created["id"].(string)

	// First update at version 0 succeeds and bumps to 1.
	w := httptest.NewRecorder()
	server.ServeHTTP(w, updateRequest(productID, sku, 12.00, 0))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]any)
	assert.Equal(t, float64(1), data["version"])

	// Replaying the same version token is a conflict.
	w = httptest.NewRecorder()
	server.ServeHTTP(w, updateRequest(productID, sku, 13.00, 0))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestProductUpdateAfterDeleteIsNotFound(t *testing.T) {
	server := setupTestServer(t)

	sku := uniqueSKU("UPD-DEL")
	created := createProduct(t, server, sku, 10.00, "integration")
	productID := created["id"].(string)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/products/%s", productID), nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	server.ServeHTTP(w, updateRequest(productID, sku, 12.00, 0))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Second delete reports not-found as well.
	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/products/%s", productID), nil)
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// Two updaters racing on the same version token: exactly one wins.
func TestProductConcurrentUpdateSingleWinner(t *testing.T) {
	server := setupTestServer(t)

	sku := uniqueSKU("RACE")
	created := createProduct(t, server, sku, 10.00, "integration")
	productID := created["id"].(string)

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := httptest.NewRecorder()
			server.ServeHTTP(w, updateRequest(productID, sku, 11.00+float64(i), 0))
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	winners := 0
	conflicts := 0
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			winners++
		case http.StatusConflict:
			conflicts++
		}
	}
	assert.Equal(t, 1, winners, "exactly one updater must win: %v", codes)
	assert.Equal(t, 1, conflicts, "the loser must see a conflict: %v", codes)
}

func TestProductSearchFilters(t *testing.T) {
	server := setupTestServer(t)

	category := "cat-" + uuid.NewString()[:8]
	createProduct(t, server, uniqueSKU("SRCH"), 500.00, category)
	createProduct(t, server, uniqueSKU("SRCH"), 1500.00, category)
	cheap := createProduct(t, server, uniqueSKU("SRCH"), 100.00, category)

	// Soft-delete one of them.
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/products/%s", cheap["id"].(string)), nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	search := func(body string) map[string]any {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/products/search", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		server.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp["data"].(map[string]any)
	}

	// Default visibility: the deleted product is invisible.
	page := search(fmt.Sprintf(`{"page": 0, "size": 20, "category": %q}`, category))
	assert.Equal(t, float64(2), page["total_elements"])

	// includeDeleted brings it back.
	page = search(fmt.Sprintf(`{"page": 0, "size": 20, "category": %q, "include_deleted": true}`, category))
	assert.Equal(t, float64(3), page["total_elements"])

	// Price range keeps only the mid product.
	page = search(fmt.Sprintf(`{"page": 0, "size": 20, "category": %q, "min_price": 1000, "max_price": 2000}`, category))
	assert.Equal(t, float64(1), page["total_elements"])
}

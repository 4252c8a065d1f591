package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

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

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env)
	appLogger.Info("Starting Product Catalog API...")

	appLogger.Info("Connecting to PostgreSQL...")
	db, err := database.WaitForDB(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL successfully")

	if err := database.RunMigrations(db); err != nil {
		appLogger.Fatal("Failed to run migrations", err)
	}

	appLogger.Info("Connecting to Redis...")
	redisClient, err := cache.WaitForRedis(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis successfully")

	productRepo := postgres.NewProductRepository(db)
	cachedRepo := cacheRepo.NewCachedProductRepository(
		productRepo,
		redisClient,
		cfg.Cache.ProductTTL,
		appLogger,
	)

	productService := product.NewService(cachedRepo, cfg.Product.InitialVersion, appLogger)
	productHandler := handler.NewProductHandler(productService, appLogger)

	router := httpDelivery.NewRouter(productHandler, cfg, appLogger)
	httpHandler := router.Setup()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", err)
	}

	appLogger.Info("Server stopped gracefully")
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"kitchen-orders/internal/cache"
	"kitchen-orders/internal/catalog"
	"kitchen-orders/internal/config"
	"kitchen-orders/internal/database"
	"kitchen-orders/internal/repository"
	"kitchen-orders/internal/service"
)

// seed imports the configured catalogue files once and exits.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger, cfg.WorkerID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// Cached catalogue reads of running workers are invalidated by the services.
	cacheStore := cache.NewNopStore()
	if cfg.Cache.Enabled {
		cacheStore = cache.NewRedisStore(cache.NewRedisClient(cfg.Redis), logger)
	}
	defer cacheStore.Close()

	store := database.NewStore(pool, cfg.Database.Timeout(), logger)
	productRepo := repository.NewProductRepository(pool, logger)
	categoryRepo := repository.NewCategoryRepository(pool, logger)
	ttl := cfg.Cache.TTLDuration()

	productService := service.NewProductService(store, productRepo, categoryRepo, cacheStore, ttl, logger)
	categoryService := service.NewCategoryService(store, categoryRepo, cacheStore, ttl, cfg.Cache.Invalidation, logger)

	fileLoader := catalog.NewFileLoader(logger)
	var s3Loader catalog.Loader
	if cfg.Catalog.S3Enabled {
		s3Loader, err = catalog.NewS3Loader(ctx, cfg.Catalog.Bucket, cfg.Catalog.Region, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialise S3 loader, using local files only")
			s3Loader = nil
		}
	}
	loader := catalog.NewFallbackLoader(s3Loader, fileLoader, cfg.Catalog.Prefix, cfg.Catalog.S3Enabled, logger)

	importer := catalog.NewImporter(loader, categoryService, productService, logger)
	result, err := importer.Run(ctx, cfg.Catalog.Files)
	if err != nil {
		return fmt.Errorf("failed to import catalogue: %w", err)
	}

	logger.Info().
		Strs("files", cfg.Catalog.Files).
		Int("categories_created", result.CategoriesCreated).
		Int("products_created", result.ProductsCreated).
		Int("products_existing", result.ProductsExisting).
		Msg("catalogue seeded")

	return nil
}

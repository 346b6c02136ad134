package service

import (
	"context"
	"strings"
	"time"

	"kitchen-orders/internal/cache"
	"kitchen-orders/internal/config"
	"kitchen-orders/internal/database"
	"kitchen-orders/internal/model"
	"kitchen-orders/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// productService implements ProductService.
type productService struct {
	tx           database.Transactor
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	cache        cache.Store
	ttl          time.Duration
	logger       zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(
	tx database.Transactor,
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	store cache.Store,
	ttl time.Duration,
	logger zerolog.Logger,
) ProductService {
	return &productService{
		tx:           tx,
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		cache:        store,
		ttl:          ttl,
		logger:       logger.With().Str("service", "product").Logger(),
	}
}

// GetAll retrieves every product.
func (s *productService) GetAll(ctx context.Context) ([]model.Product, error) {
	return cache.GetOrCompute(ctx, s.cache, cache.ProductsAllKey, s.ttl, func(ctx context.Context) ([]model.Product, error) {
		products, err := s.productRepo.GetAll(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to get products")
			return nil, database.Classify(err)
		}
		if products == nil {
			products = []model.Product{}
		}
		return products, nil
	})
}

// GetByID retrieves a single product. The cached entry is tagged with its
// category so renaming the category invalidates it.
func (s *productService) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	if err := validateID(id, "product"); err != nil {
		return nil, err
	}

	return cache.GetOrComputeTagged(ctx, s.cache, cache.ProductKey(id), s.ttl,
		func(ctx context.Context) (*model.Product, error) {
			product, err := s.productRepo.GetByID(ctx, id)
			if err != nil {
				s.logger.Error().Err(err).Int64("product_id", id).Msg("failed to get product")
				return nil, database.Classify(err)
			}
			if product == nil {
				return nil, productNotFound(id)
			}
			return product, nil
		},
		func(p *model.Product) []string {
			return []string{cache.CategoryTag(p.CategoryID)}
		},
	)
}

// GetByCategory retrieves the products of one category.
func (s *productService) GetByCategory(ctx context.Context, categoryID int64) ([]model.Product, error) {
	if err := validateID(categoryID, "category"); err != nil {
		return nil, err
	}

	key := cache.ProductsByCategoryKey(categoryID)
	return cache.GetOrCompute(ctx, s.cache, key, s.ttl, func(ctx context.Context) ([]model.Product, error) {
		category, err := s.categoryRepo.GetByID(ctx, categoryID)
		if err != nil {
			return nil, database.Classify(err)
		}
		if category == nil {
			return nil, categoryNotFound(categoryID)
		}

		products, err := s.productRepo.GetByCategory(ctx, categoryID)
		if err != nil {
			s.logger.Error().Err(err).Int64("category_id", categoryID).Msg("failed to get products by category")
			return nil, database.Classify(err)
		}
		if products == nil {
			products = []model.Product{}
		}
		return products, nil
	}, cache.CategoryTag(categoryID))
}

// Search matches product names. Search results are not cached.
func (s *productService) Search(ctx context.Context, term string) ([]model.Product, error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < minSearchLength {
		return nil, model.ValidationError(model.ErrCodeValidation, "Search term must have at least %d characters", minSearchLength)
	}

	products, err := s.productRepo.Search(ctx, term)
	if err != nil {
		s.logger.Error().Err(err).Str("term", term).Msg("failed to search products")
		return nil, database.Classify(err)
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, nil
}

func (s *productService) Count(ctx context.Context) (int, error) {
	count, err := s.productRepo.Count(ctx)
	if err != nil {
		return 0, database.Classify(err)
	}
	return count, nil
}

// Create adds a product to an existing category.
func (s *productService) Create(ctx context.Context, req *model.ProductRequest) (int64, error) {
	if req == nil {
		return 0, model.ValidationError(model.ErrCodeInvalidJSON, "Product request is required")
	}
	name, err := validateName(req.Name, "Product")
	if err != nil {
		return 0, err
	}
	if err := s.requireCategory(ctx, req.CategoryID); err != nil {
		return 0, err
	}

	req = &model.ProductRequest{Name: name, CategoryID: req.CategoryID}

	var id int64
	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		id, err = s.productRepo.Create(ctx, tx, req)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Str("name", name).Msg("failed to create product")
		return 0, err
	}

	s.cache.Delete(ctx, cache.ProductsAllKey, cache.ProductsByCategoryKey(req.CategoryID))

	s.logger.Info().Int64("product_id", id).Str("name", name).Msg("product created")
	return id, nil
}

// Update renames a product or moves it to another category.
func (s *productService) Update(ctx context.Context, id int64, req *model.ProductUpdateRequest) error {
	if err := validateID(id, "product"); err != nil {
		return err
	}
	if req == nil || (req.Name == nil && req.CategoryID == nil) {
		return model.ValidationError(model.ErrCodeMissingField, "Nothing to update: name or categoryId is required")
	}

	update := &model.ProductUpdateRequest{CategoryID: req.CategoryID}
	if req.Name != nil {
		name, err := validateName(*req.Name, "Product")
		if err != nil {
			return err
		}
		update.Name = &name
	}

	existing, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return database.Classify(err)
	}
	if existing == nil {
		return productNotFound(id)
	}
	if update.CategoryID != nil {
		if err := s.requireCategory(ctx, *update.CategoryID); err != nil {
			return err
		}
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		updated, err := s.productRepo.Update(ctx, tx, id, update)
		if err != nil {
			return err
		}
		if !updated {
			return productNotFound(id)
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("product_id", id).Msg("failed to update product")
		return err
	}

	stale := []string{cache.ProductKey(id), cache.ProductsAllKey, cache.ProductsByCategoryKey(existing.CategoryID)}
	if update.CategoryID != nil && *update.CategoryID != existing.CategoryID {
		stale = append(stale, cache.ProductsByCategoryKey(*update.CategoryID))
	}
	s.cache.Delete(ctx, stale...)

	s.logger.Info().Int64("product_id", id).Msg("product updated")
	return nil
}

// Delete removes a product. Products referenced by an order cannot be deleted.
func (s *productService) Delete(ctx context.Context, id int64) error {
	if err := validateID(id, "product"); err != nil {
		return err
	}

	existing, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return database.Classify(err)
	}
	if existing == nil {
		return productNotFound(id)
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		deleted, err := s.productRepo.Delete(ctx, tx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return productNotFound(id)
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("product_id", id).Msg("failed to delete product")
		return err
	}

	s.cache.Delete(ctx, cache.ProductKey(id), cache.ProductsAllKey, cache.ProductsByCategoryKey(existing.CategoryID))

	s.logger.Info().Int64("product_id", id).Msg("product deleted")
	return nil
}

func (s *productService) requireCategory(ctx context.Context, id int64) error {
	if err := validateID(id, "category"); err != nil {
		return err
	}
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return database.Classify(err)
	}
	if category == nil {
		return categoryNotFound(id)
	}
	return nil
}

// categoryService implements CategoryService.
type categoryService struct {
	tx           database.Transactor
	categoryRepo repository.CategoryRepository
	cache        cache.Store
	ttl          time.Duration
	invalidation string
	logger       zerolog.Logger
}

// NewCategoryService creates a new category service. invalidation selects how
// cached products of a renamed or deleted category are found: by tag index or
// by keyspace sweep.
func NewCategoryService(
	tx database.Transactor,
	categoryRepo repository.CategoryRepository,
	store cache.Store,
	ttl time.Duration,
	invalidation string,
	logger zerolog.Logger,
) CategoryService {
	return &categoryService{
		tx:           tx,
		categoryRepo: categoryRepo,
		cache:        store,
		ttl:          ttl,
		invalidation: invalidation,
		logger:       logger.With().Str("service", "category").Logger(),
	}
}

func (s *categoryService) GetAll(ctx context.Context) ([]model.Category, error) {
	return cache.GetOrCompute(ctx, s.cache, cache.CategoriesAllKey, s.ttl, func(ctx context.Context) ([]model.Category, error) {
		categories, err := s.categoryRepo.GetAll(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to get categories")
			return nil, database.Classify(err)
		}
		if categories == nil {
			categories = []model.Category{}
		}
		return categories, nil
	})
}

func (s *categoryService) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	if err := validateID(id, "category"); err != nil {
		return nil, err
	}

	return cache.GetOrCompute(ctx, s.cache, cache.CategoryKey(id), s.ttl, func(ctx context.Context) (*model.Category, error) {
		category, err := s.categoryRepo.GetByID(ctx, id)
		if err != nil {
			return nil, database.Classify(err)
		}
		if category == nil {
			return nil, categoryNotFound(id)
		}
		return category, nil
	})
}

// Create adds a category. Duplicate names are a conflict.
func (s *categoryService) Create(ctx context.Context, name string) (int64, error) {
	name, err := validateName(name, "Category")
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		id, err = s.categoryRepo.Create(ctx, tx, name)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Str("name", name).Msg("failed to create category")
		return 0, err
	}

	s.cache.Delete(ctx, cache.CategoriesAllKey)

	s.logger.Info().Int64("category_id", id).Str("name", name).Msg("category created")
	return id, nil
}

func (s *categoryService) Update(ctx context.Context, id int64, name string) error {
	if err := validateID(id, "category"); err != nil {
		return err
	}
	name, err := validateName(name, "Category")
	if err != nil {
		return err
	}
	if err := s.requireCategory(ctx, id); err != nil {
		return err
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		updated, err := s.categoryRepo.Update(ctx, tx, id, name)
		if err != nil {
			return err
		}
		if !updated {
			return categoryNotFound(id)
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("category_id", id).Msg("failed to update category")
		return err
	}

	s.invalidate(ctx, id)

	s.logger.Info().Int64("category_id", id).Str("name", name).Msg("category renamed")
	return nil
}

// Delete removes a category together with its products.
func (s *categoryService) Delete(ctx context.Context, id int64) error {
	if err := validateID(id, "category"); err != nil {
		return err
	}
	if err := s.requireCategory(ctx, id); err != nil {
		return err
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		deleted, err := s.categoryRepo.Delete(ctx, tx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return categoryNotFound(id)
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("category_id", id).Msg("failed to delete category")
		return err
	}

	s.invalidate(ctx, id)

	s.logger.Info().Int64("category_id", id).Msg("category deleted")
	return nil
}

// invalidate removes the category keys plus every cached product that embeds
// the category's name, located through the configured strategy.
func (s *categoryService) invalidate(ctx context.Context, id int64) {
	s.cache.Delete(ctx,
		cache.CategoryKey(id),
		cache.CategoriesAllKey,
		cache.ProductsAllKey,
		cache.ProductsByCategoryKey(id),
	)

	switch s.invalidation {
	case config.InvalidationSweep:
		s.cache.Sweep(ctx, cache.ProductsPattern)
	default:
		s.cache.InvalidateTags(ctx, cache.CategoryTag(id))
	}
}

func (s *categoryService) requireCategory(ctx context.Context, id int64) error {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return database.Classify(err)
	}
	if category == nil {
		return categoryNotFound(id)
	}
	return nil
}

func categoryNotFound(id int64) error {
	return model.NotFoundError(model.ErrCodeCategoryNotFound, "Category %d not found", id)
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"kitchen-orders/internal/model"

	"github.com/rs/zerolog"
)

// CategoryCatalog is the category side of the catalogue the importer writes to.
type CategoryCatalog interface {
	GetAll(ctx context.Context) ([]model.Category, error)
	Create(ctx context.Context, name string) (int64, error)
}

// ProductCatalog is the product side of the catalogue the importer writes to.
type ProductCatalog interface {
	GetByCategory(ctx context.Context, categoryID int64) ([]model.Product, error)
	Create(ctx context.Context, req *model.ProductRequest) (int64, error)
}

// Result counts what an import changed.
type Result struct {
	CategoriesCreated int
	ProductsCreated   int
	ProductsExisting  int
}

// Importer loads catalogue files and creates the categories and products they
// name that do not exist yet. Existing rows are never modified.
type Importer struct {
	loader     Loader
	categories CategoryCatalog
	products   ProductCatalog
	logger     zerolog.Logger
}

func NewImporter(loader Loader, categories CategoryCatalog, products ProductCatalog, logger zerolog.Logger) *Importer {
	return &Importer{
		loader:     loader,
		categories: categories,
		products:   products,
		logger:     logger.With().Str("component", "catalog-importer").Logger(),
	}
}

// Run loads every file and imports their merged content.
func (i *Importer) Run(ctx context.Context, paths []string) (*Result, error) {
	c, err := i.Load(ctx, paths)
	if err != nil {
		return nil, err
	}
	return i.Import(ctx, c)
}

// Load reads all files concurrently and merges them in the order given.
// Any failing file fails the whole load.
func (i *Importer) Load(ctx context.Context, paths []string) (*Catalog, error) {
	if len(paths) == 0 {
		return nil, errors.New("no catalogue files configured")
	}

	type loadResult struct {
		index   int
		catalog *Catalog
		err     error
	}

	resultChan := make(chan loadResult, len(paths))
	var wg sync.WaitGroup

	for idx, path := range paths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()
			c, err := i.loader.Load(ctx, path)
			resultChan <- loadResult{index: index, catalog: c, err: err}
		}(idx, path)
	}

	wg.Wait()
	close(resultChan)

	loaded := make([]*Catalog, len(paths))
	for result := range resultChan {
		if result.err != nil {
			return nil, fmt.Errorf("failed to load catalogue file %s: %w", paths[result.index], result.err)
		}
		loaded[result.index] = result.catalog
	}

	merged := NewCatalog()
	for _, c := range loaded {
		merged.Merge(c)
	}

	i.logger.Info().
		Int("files", len(paths)).
		Int("entries", merged.Size()).
		Msg("catalogue files loaded")

	return merged, nil
}

// Import creates the missing categories, then the missing products of each.
func (i *Importer) Import(ctx context.Context, c *Catalog) (*Result, error) {
	result := &Result{}

	categoryIDs, err := i.categoryIndex(ctx)
	if err != nil {
		return nil, err
	}

	for _, name := range c.Categories() {
		key := strings.ToLower(name)
		if _, ok := categoryIDs[key]; ok {
			continue
		}

		id, err := i.categories.Create(ctx, name)
		switch {
		case err == nil:
			categoryIDs[key] = id
			result.CategoriesCreated++
		case model.KindOf(err) == model.KindConflict:
			// Created by a concurrent import.
			if categoryIDs, err = i.categoryIndex(ctx); err != nil {
				return nil, err
			}
			if _, ok := categoryIDs[key]; !ok {
				return nil, fmt.Errorf("category %q conflicts but cannot be found", name)
			}
		default:
			return nil, fmt.Errorf("failed to create category %q: %w", name, err)
		}
	}

	existing := make(map[int64]map[string]struct{})
	for _, e := range c.Entries() {
		categoryID := categoryIDs[strings.ToLower(e.Category)]

		names, ok := existing[categoryID]
		if !ok {
			if names, err = i.productNames(ctx, categoryID); err != nil {
				return nil, err
			}
			existing[categoryID] = names
		}

		key := strings.ToLower(e.Product)
		if _, ok := names[key]; ok {
			result.ProductsExisting++
			continue
		}

		_, err = i.products.Create(ctx, &model.ProductRequest{Name: e.Product, CategoryID: categoryID})
		switch {
		case err == nil:
			result.ProductsCreated++
		case model.KindOf(err) == model.KindConflict:
			result.ProductsExisting++
		default:
			return nil, fmt.Errorf("failed to create product %q in %q: %w", e.Product, e.Category, err)
		}
		names[key] = struct{}{}
	}

	i.logger.Info().
		Int("categories_created", result.CategoriesCreated).
		Int("products_created", result.ProductsCreated).
		Int("products_existing", result.ProductsExisting).
		Msg("catalogue imported")

	return result, nil
}

func (i *Importer) categoryIndex(ctx context.Context) (map[string]int64, error) {
	categories, err := i.categories.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	index := make(map[string]int64, len(categories))
	for _, cat := range categories {
		index[strings.ToLower(cat.Name)] = cat.ID
	}
	return index, nil
}

func (i *Importer) productNames(ctx context.Context, categoryID int64) (map[string]struct{}, error) {
	products, err := i.products.GetByCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products of category %d: %w", categoryID, err)
	}
	names := make(map[string]struct{}, len(products))
	for _, p := range products {
		names[strings.ToLower(p.Name)] = struct{}{}
	}
	return names, nil
}

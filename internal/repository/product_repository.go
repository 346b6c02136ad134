package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"kitchen-orders/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

const productSelect = `
	SELECT p.id, p.name, p.category_id, c.name
	FROM products p
	JOIN categories c ON c.id = p.category_id
`

// queryProducts runs a product select and scans every row.
func (r *productRepository) queryProducts(ctx context.Context, query string, args ...any) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.CategoryID, &p.CategoryName); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// GetAll retrieves every product ordered by category and name.
func (r *productRepository) GetAll(ctx context.Context) ([]model.Product, error) {
	return r.queryProducts(ctx, productSelect+` ORDER BY c.name, p.name`)
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	var p model.Product
	err := r.pool.QueryRow(ctx, productSelect+` WHERE p.id = $1`, id).
		Scan(&p.ID, &p.Name, &p.CategoryID, &p.CategoryName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("product_id", id).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return &p, nil
}

// GetByCategory retrieves the products of one category.
func (r *productRepository) GetByCategory(ctx context.Context, categoryID int64) ([]model.Product, error) {
	return r.queryProducts(ctx, productSelect+` WHERE p.category_id = $1 ORDER BY p.name`, categoryID)
}

// FindByName retrieves a product by exact name within a category.
func (r *productRepository) FindByName(ctx context.Context, categoryID int64, name string) (*model.Product, error) {
	products, err := r.queryProducts(ctx, productSelect+` WHERE p.category_id = $1 AND p.name = $2`, categoryID, name)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, nil
	}
	return &products[0], nil
}

// Search retrieves products whose name contains the term, case-insensitively.
func (r *productRepository) Search(ctx context.Context, term string) ([]model.Product, error) {
	return r.queryProducts(ctx, productSelect+` WHERE p.name ILIKE '%' || $1 || '%' ORDER BY p.name`, term)
}

// Count returns the number of products.
func (r *productRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		r.logger.Error().Err(err).Msg("failed to count products")
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// ValidateProductsExist checks if all provided product IDs exist in the database.
func (r *productRepository) ValidateProductsExist(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to validate products exist")
		return fmt.Errorf("failed to validate products exist: %w", err)
	}

	found, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to scan product ids")
		return fmt.Errorf("failed to validate products exist: %w", err)
	}

	existing := make(map[int64]bool, len(found))
	for _, id := range found {
		existing[id] = true
	}

	var missing []int64
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !existing[id] && !seen[id] {
			missing = append(missing, id)
		}
		seen[id] = true
	}

	if len(missing) > 0 {
		sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
		r.logger.Warn().
			Int("expected", len(ids)).
			Int("found", len(found)).
			Msg("not all product IDs exist")
		return model.NotFoundError(model.ErrCodeProductNotFound, "Products not found: %v", missing)
	}

	return nil
}

// Create inserts a product and returns its id.
func (r *productRepository) Create(ctx context.Context, tx pgx.Tx, req *model.ProductRequest) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx,
		`INSERT INTO products (name, category_id) VALUES ($1, $2) RETURNING id`,
		req.Name, req.CategoryID,
	).Scan(&id)
	if err != nil {
		r.logger.Error().Err(err).Str("name", req.Name).Msg("failed to create product")
		return 0, fmt.Errorf("failed to create product: %w", err)
	}
	return id, nil
}

// Update renames a product and/or moves it to another category.
func (r *productRepository) Update(ctx context.Context, tx pgx.Tx, id int64, req *model.ProductUpdateRequest) (bool, error) {
	tag, err := tx.Exec(ctx,
		`UPDATE products SET name = COALESCE($2, name), category_id = COALESCE($3, category_id) WHERE id = $1`,
		id, req.Name, req.CategoryID,
	)
	if err != nil {
		r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to update product")
		return false, fmt.Errorf("failed to update product: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes a product.
func (r *productRepository) Delete(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to delete product")
		return false, fmt.Errorf("failed to delete product: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

package repository

import (
	"context"
	"testing"
	"time"

	"kitchen-orders/internal/config"
	"kitchen-orders/internal/database"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL container with the application schema applied.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := database.NewPoolFromURL(ctx, connStr, config.DatabaseConfig{MaxConnections: 5, MinConnections: 1}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, pool, zerolog.Nop()))

	cleanup := func() {
		pool.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// seedCatalog inserts two categories and three products and returns their ids.
func seedCatalog(t *testing.T, pool *pgxpool.Pool) (categories map[string]int64, products map[string]int64) {
	t.Helper()
	ctx := context.Background()

	categories = map[string]int64{}
	for _, name := range []string{"Pizzas", "Drinks"} {
		var id int64
		require.NoError(t, pool.QueryRow(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id`, name).Scan(&id))
		categories[name] = id
	}

	products = map[string]int64{}
	for _, p := range []struct{ name, category string }{
		{"Muzzarella", "Pizzas"},
		{"Napolitana", "Pizzas"},
		{"Beer", "Drinks"},
	} {
		var id int64
		require.NoError(t, pool.QueryRow(ctx,
			`INSERT INTO products (name, category_id) VALUES ($1, $2) RETURNING id`,
			p.name, categories[p.category],
		).Scan(&id))
		products[p.name] = id
	}

	return categories, products
}

// inTx runs fn in a transaction and commits it.
func inTx(t *testing.T, pool *pgxpool.Pool, fn func(ctx context.Context, tx pgx.Tx) error) {
	t.Helper()
	require.NoError(t, newTestStore(pool).WithTransaction(context.Background(), fn))
}

func newTestStore(pool *pgxpool.Pool) *database.Store {
	return database.NewStore(pool, 10*time.Second, zerolog.Nop())
}

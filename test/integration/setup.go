package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"kitchen-orders/internal/cache"
	"kitchen-orders/internal/config"
	"kitchen-orders/internal/database"
	"kitchen-orders/internal/events"
	"kitchen-orders/internal/handler"
	"kitchen-orders/internal/repository"
	"kitchen-orders/internal/router"
	"kitchen-orders/internal/service"
	"kitchen-orders/internal/stream"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	TestAPIKey  = "test-api-key"
	TestChannel = "kitchen:orders:test"
	TestTTL     = 10 * time.Minute
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a migrated PostgreSQL test container and connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	pool, err := database.NewPoolFromURL(ctx, connStr, config.DatabaseConfig{MaxConnections: 10, MinConnections: 2}, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := database.Migrate(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// Catalog holds the ids of the seeded products by name.
type Catalog map[string]int64

// SeedCatalog inserts two categories and three products.
func SeedCatalog(t *testing.T, pool *pgxpool.Pool) Catalog {
	t.Helper()
	ctx := context.Background()

	categories := map[string]int64{}
	for _, name := range []string{"Pizzas", "Bebidas"} {
		var id int64
		require.NoError(t, pool.QueryRow(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id`, name).Scan(&id))
		categories[name] = id
	}

	products := Catalog{}
	for _, p := range []struct{ name, category string }{
		{"Muzzarella", "Pizzas"},
		{"Napolitana", "Pizzas"},
		{"Agua", "Bebidas"},
	} {
		var id int64
		require.NoError(t, pool.QueryRow(ctx,
			`INSERT INTO products (name, category_id) VALUES ($1, $2) RETURNING id`,
			p.name, categories[p.category],
		).Scan(&id))
		products[p.name] = id
	}

	return products
}

// CleanupDB removes all rows and resets the id sequences.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`TRUNCATE order_lines, payments, orders, clients, products, categories RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("failed to clean tables: %v", err)
	}
}

// CountRows returns the number of rows in table.
func CountRows(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

// App is one fully wired worker process backed by the test database and an
// in-memory Redis used for both the cache and the event bus.
type App struct {
	Redis      *miniredis.Miniredis
	Client     *redis.Client
	Cache      cache.Store
	Registry   *stream.Registry
	Orders     service.OrderService
	Products   service.ProductService
	Categories service.CategoryService
	Finance    service.FinanceService
	Clients    service.ClientService
	Handler    http.Handler
}

// AppOption customises NewApp.
type AppOption func(*appOptions)

type appOptions struct {
	wrapOrders func(repository.OrderRepository) repository.OrderRepository
	redis      *miniredis.Miniredis
}

// WithOrderRepository wraps the order repository, e.g. to inject failures.
func WithOrderRepository(wrap func(repository.OrderRepository) repository.OrderRepository) AppOption {
	return func(o *appOptions) { o.wrapOrders = wrap }
}

// WithRedis shares one in-memory Redis between several apps, as N workers share one server.
func WithRedis(mr *miniredis.Miniredis) AppOption {
	return func(o *appOptions) { o.redis = mr }
}

// NewApp wires a worker and starts its relay. The relay is subscribed when NewApp returns.
func NewApp(t *testing.T, db *TestDB, opts ...AppOption) *App {
	t.Helper()

	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}

	logger := zerolog.Nop()

	mr := o.redis
	if mr == nil {
		mr = miniredis.RunT(t)
	}
	redisCfg := config.RedisConfig{Addr: mr.Addr()}
	client := cache.NewRedisClient(redisCfg)
	cacheStore := cache.NewRedisStore(client, logger)

	broker := events.NewRedisBroker(client, redisCfg, logger)
	registry := stream.NewRegistry(16, logger)
	publisher := events.NewPublisher(broker, TestChannel, logger)
	relay := events.NewRelay(broker, TestChannel, registry, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		relay.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		registry.Shutdown()
		broker.Close()
		client.Close()
	})

	select {
	case <-relay.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not subscribe")
	}

	store := database.NewStore(db.Pool, 10*time.Second, logger)
	var orderRepo repository.OrderRepository = repository.NewOrderRepository(db.Pool, logger)
	if o.wrapOrders != nil {
		orderRepo = o.wrapOrders(orderRepo)
	}
	productRepo := repository.NewProductRepository(db.Pool, logger)
	categoryRepo := repository.NewCategoryRepository(db.Pool, logger)
	financeRepo := repository.NewFinanceRepository(db.Pool, logger)
	clientRepo := repository.NewClientRepository(db.Pool, logger)

	app := &App{
		Redis:      mr,
		Client:     client,
		Cache:      cacheStore,
		Registry:   registry,
		Orders:     service.NewOrderService(store, orderRepo, productRepo, clientRepo, cacheStore, TestTTL, publisher, time.Local, logger),
		Products:   service.NewProductService(store, productRepo, categoryRepo, cacheStore, TestTTL, logger),
		Categories: service.NewCategoryService(store, categoryRepo, cacheStore, TestTTL, config.InvalidationIndex, logger),
		Finance:    service.NewFinanceService(financeRepo, cacheStore, TestTTL, time.Local, logger),
		Clients:    service.NewClientService(clientRepo, cacheStore, TestTTL, logger),
	}

	app.Handler = router.New(router.Handlers{
		Orders:     handler.NewOrderHandler(app.Orders, logger),
		Products:   handler.NewProductHandler(app.Products, logger),
		Categories: handler.NewCategoryHandler(app.Categories, logger),
		Finance:    handler.NewFinanceHandler(app.Finance, logger),
		Clients:    handler.NewClientHandler(app.Clients, logger),
		Events:     handler.NewEventsHandler(registry, time.Second, logger),
	}, TestAPIKey, logger)

	return app
}

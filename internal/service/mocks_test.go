package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"kitchen-orders/internal/cache"
	"kitchen-orders/internal/config"
	"kitchen-orders/internal/database"
	"kitchen-orders/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]model.Order), args.Int(1), args.Error(2)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) Exists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) HasPayment(ctx context.Context, orderID int64) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) LineExists(ctx context.Context, orderID, productID int64) (bool, error) {
	args := m.Called(ctx, orderID, productID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) LockOrder(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	args := m.Called(ctx, tx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) GetPayment(ctx context.Context, tx pgx.Tx, orderID int64) (*model.Payment, error) {
	args := m.Called(ctx, tx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, tx pgx.Tx, req *model.CreateOrderRequest) (int64, error) {
	args := m.Called(ctx, tx, req)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) Update(ctx context.Context, tx pgx.Tx, id int64, req *model.UpdateOrderRequest) error {
	args := m.Called(ctx, tx, id, req)
	return args.Error(0)
}

func (m *MockOrderRepository) CreatePayment(ctx context.Context, tx pgx.Tx, orderID int64, method string, amount decimal.Decimal, paid bool) error {
	args := m.Called(ctx, tx, orderID, method, amount.String(), paid)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdatePayment(ctx context.Context, tx pgx.Tx, orderID int64, method string, amount decimal.Decimal) error {
	args := m.Called(ctx, tx, orderID, method, amount.String())
	return args.Error(0)
}

func (m *MockOrderRepository) MarkPaid(ctx context.Context, tx pgx.Tx, orderID int64) (bool, error) {
	args := m.Called(ctx, tx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) CreateLines(ctx context.Context, tx pgx.Tx, orderID int64, lines []model.LineRequest) error {
	args := m.Called(ctx, tx, orderID, lines)
	return args.Error(0)
}

func (m *MockOrderRepository) AddLine(ctx context.Context, tx pgx.Tx, orderID, productID int64, quantity int) error {
	args := m.Called(ctx, tx, orderID, productID, quantity)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateLineQuantity(ctx context.Context, tx pgx.Tx, orderID, productID int64, quantity int) (bool, error) {
	args := m.Called(ctx, tx, orderID, productID, quantity)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) DeleteLine(ctx context.Context, tx pgx.Tx, orderID, productID int64) (bool, error) {
	args := m.Called(ctx, tx, orderID, productID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) DeleteLines(ctx context.Context, tx pgx.Tx, orderID int64) error {
	args := m.Called(ctx, tx, orderID)
	return args.Error(0)
}

func (m *MockOrderRepository) Delete(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	args := m.Called(ctx, tx, id)
	return args.Bool(0), args.Error(1)
}

// MockClientRepository is a mock implementation of ClientRepository.
type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) GetByPhone(ctx context.Context, phone string) (*model.Client, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Client), args.Error(1)
}

func (m *MockClientRepository) Upsert(ctx context.Context, tx pgx.Tx, client *model.Client) error {
	args := m.Called(ctx, tx, client)
	return args.Error(0)
}

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll(ctx context.Context) ([]model.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByCategory(ctx context.Context, categoryID int64) ([]model.Product, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) FindByName(ctx context.Context, categoryID int64, name string) (*model.Product, error) {
	args := m.Called(ctx, categoryID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) Search(ctx context.Context, term string) ([]model.Product, error) {
	args := m.Called(ctx, term)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockProductRepository) ValidateProductsExist(ctx context.Context, ids []int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockProductRepository) Create(ctx context.Context, tx pgx.Tx, req *model.ProductRequest) (int64, error) {
	args := m.Called(ctx, tx, req)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, tx pgx.Tx, id int64, req *model.ProductUpdateRequest) (bool, error) {
	args := m.Called(ctx, tx, id, req)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) Delete(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	args := m.Called(ctx, tx, id)
	return args.Bool(0), args.Error(1)
}

// MockCategoryRepository is a mock implementation of CategoryRepository.
type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) GetAll(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Category), args.Error(1)
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Category), args.Error(1)
}

func (m *MockCategoryRepository) GetByName(ctx context.Context, name string) (*model.Category, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Category), args.Error(1)
}

func (m *MockCategoryRepository) Create(ctx context.Context, tx pgx.Tx, name string) (int64, error) {
	args := m.Called(ctx, tx, name)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCategoryRepository) Update(ctx context.Context, tx pgx.Tx, id int64, name string) (bool, error) {
	args := m.Called(ctx, tx, id, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockCategoryRepository) Delete(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	args := m.Called(ctx, tx, id)
	return args.Bool(0), args.Error(1)
}

// MockFinanceRepository is a mock implementation of FinanceRepository.
type MockFinanceRepository struct {
	mock.Mock
}

func (m *MockFinanceRepository) TotalPaid(ctx context.Context, from, to time.Time, method string) (decimal.Decimal, int, error) {
	args := m.Called(ctx, from, to, method)
	return args.Get(0).(decimal.Decimal), args.Int(1), args.Error(2)
}

// fakeTransactor runs fn without a database and classifies its error the
// way the real store does.
type fakeTransactor struct {
	calls int
	err   error
}

func (f *fakeTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return database.Classify(fn(ctx, nil))
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []model.KitchenEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event model.KitchenEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Events() []model.KitchenEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.KitchenEvent(nil), p.events...)
}

func setupCache(t *testing.T) (*miniredis.Miniredis, cache.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := cache.NewRedisClient(config.RedisConfig{Addr: mr.Addr(), PoolSize: 2})
	store := cache.NewRedisStore(client, zerolog.Nop())
	t.Cleanup(func() { store.Close() })
	return mr, store
}

// methodNames lists the mocked calls in the order they were made.
func methodNames(m *mock.Mock) []string {
	names := make([]string, 0, len(m.Calls))
	for _, call := range m.Calls {
		names = append(names, call.Method)
	}
	return names
}

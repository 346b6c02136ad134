package repository

import (
	"context"
	"testing"

	"kitchen-orders/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createOrder(t *testing.T, pool *pgxpool.Pool, repo OrderRepository, lines []model.LineRequest) int64 {
	t.Helper()
	var id int64
	inTx(t, pool, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		id, err = repo.Create(ctx, tx, &model.CreateOrderRequest{
			Address:       "Av. Siempre Viva 123",
			DeliveryTime:  "21:30",
			ClientSurname: "Simpson",
		})
		if err != nil {
			return err
		}
		if err := repo.CreatePayment(ctx, tx, id, model.PaymentCash, decimal.NewFromFloat(900), false); err != nil {
			return err
		}
		return repo.CreateLines(ctx, tx, id, lines)
	})
	return id
}

func TestOrderRepository_CreateAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, products := seedCatalog(t, pool)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	id := createOrder(t, pool, repo, []model.LineRequest{
		{ProductID: products["Muzzarella"], Quantity: 2},
		{ProductID: products["Beer"], Quantity: 1},
	})

	order, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, id, order.ID)
	assert.Equal(t, "Av. Siempre Viva 123", order.Address)
	assert.Equal(t, model.StatusPreparing, order.Status)
	assert.Len(t, order.Lines, 2)
	require.NotNil(t, order.Payment)
	assert.True(t, decimal.NewFromInt(900).Equal(order.Payment.Amount))
	assert.Nil(t, order.PaidAt)

	for _, line := range order.Lines {
		if line.ProductID == products["Muzzarella"] {
			assert.Equal(t, 2, line.Quantity)
			assert.Equal(t, "Pizzas", line.CategoryName)
		}
	}
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())

	order, err := repo.GetByID(context.Background(), 9999)
	assert.NoError(t, err)
	assert.Nil(t, order)
}

func TestOrderRepository_LineOperations(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, products := seedCatalog(t, pool)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	id := createOrder(t, pool, repo, []model.LineRequest{{ProductID: products["Muzzarella"], Quantity: 1}})

	exists, err := repo.LineExists(ctx, id, products["Muzzarella"])
	require.NoError(t, err)
	assert.True(t, exists)

	inTx(t, pool, func(ctx context.Context, tx pgx.Tx) error {
		if err := repo.AddLine(ctx, tx, id, products["Beer"], 3); err != nil {
			return err
		}
		updated, err := repo.UpdateLineQuantity(ctx, tx, id, products["Muzzarella"], 4)
		require.True(t, updated)
		return err
	})

	order, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Len(t, order.Lines, 2)

	inTx(t, pool, func(ctx context.Context, tx pgx.Tx) error {
		updated, err := repo.UpdateLineQuantity(ctx, tx, id, products["Napolitana"], 4)
		assert.False(t, updated)
		if err != nil {
			return err
		}
		deleted, err := repo.DeleteLine(ctx, tx, id, products["Beer"])
		assert.True(t, deleted)
		return err
	})

	order, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, 4, order.Lines[0].Quantity)
}

func TestOrderRepository_DuplicateLineIsRejected(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, products := seedCatalog(t, pool)
	repo := NewOrderRepository(pool, zerolog.Nop())

	id := createOrder(t, pool, repo, []model.LineRequest{{ProductID: products["Beer"], Quantity: 1}})

	store := newTestStore(pool)
	err := store.WithTransaction(context.Background(), func(ctx context.Context, tx pgx.Tx) error {
		return repo.AddLine(ctx, tx, id, products["Beer"], 1)
	})

	require.Error(t, err)
	assert.Equal(t, model.KindConflict, model.KindOf(err))
}

func TestOrderRepository_PaymentLifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, products := seedCatalog(t, pool)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	id := createOrder(t, pool, repo, []model.LineRequest{{ProductID: products["Beer"], Quantity: 1}})

	inTx(t, pool, func(ctx context.Context, tx pgx.Tx) error {
		locked, err := repo.LockOrder(ctx, tx, id)
		require.NoError(t, err)
		require.True(t, locked)

		payment, err := repo.GetPayment(ctx, tx, id)
		require.NoError(t, err)
		require.NotNil(t, payment)
		assert.False(t, payment.IsPaid())

		if err := repo.UpdatePayment(ctx, tx, id, model.PaymentTransfer, decimal.RequireFromString("950.50")); err != nil {
			return err
		}
		marked, err := repo.MarkPaid(ctx, tx, id)
		assert.True(t, marked)
		return err
	})

	inTx(t, pool, func(ctx context.Context, tx pgx.Tx) error {
		marked, err := repo.MarkPaid(ctx, tx, id)
		assert.False(t, marked)
		return err
	})

	order, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, order.PaidAt)
	assert.Equal(t, model.PaymentTransfer, order.Payment.Method)
	assert.Equal(t, "950.5", order.Payment.Amount.String())

	inTx(t, pool, func(ctx context.Context, tx pgx.Tx) error {
		locked, err := repo.LockOrder(ctx, tx, 9999)
		assert.False(t, locked)
		return err
	})
}

func TestOrderRepository_UpdateAndDelete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, products := seedCatalog(t, pool)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	id := createOrder(t, pool, repo, []model.LineRequest{{ProductID: products["Beer"], Quantity: 1}})

	status := model.StatusReady
	observation := "ring twice"
	inTx(t, pool, func(ctx context.Context, tx pgx.Tx) error {
		return repo.Update(ctx, tx, id, &model.UpdateOrderRequest{Status: &status, Observation: &observation})
	})

	order, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, order.Status)
	assert.Equal(t, "ring twice", order.Observation)
	assert.Equal(t, "Av. Siempre Viva 123", order.Address)

	inTx(t, pool, func(ctx context.Context, tx pgx.Tx) error {
		deleted, err := repo.Delete(ctx, tx, id)
		assert.True(t, deleted)
		return err
	})

	exists, err := repo.Exists(ctx, id)
	require.NoError(t, err)
	assert.False(t, exists)

	var lines int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM order_lines WHERE order_id = $1`, id).Scan(&lines))
	assert.Zero(t, lines)
}

func TestOrderRepository_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, products := seedCatalog(t, pool)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		ids = append(ids, createOrder(t, pool, repo, []model.LineRequest{{ProductID: products["Beer"], Quantity: i + 1}}))
	}

	ready := model.StatusReady
	inTx(t, pool, func(ctx context.Context, tx pgx.Tx) error {
		return repo.Update(ctx, tx, ids[0], &model.UpdateOrderRequest{Status: &ready})
	})

	tests := []struct {
		name      string
		filter    model.OrderFilter
		wantCount int
		wantTotal int
	}{
		{name: "all orders", filter: model.OrderFilter{Limit: 10, Page: 1}, wantCount: 3, wantTotal: 3},
		{name: "second page", filter: model.OrderFilter{Limit: 2, Page: 2}, wantCount: 1, wantTotal: 3},
		{name: "status filter", filter: model.OrderFilter{Status: model.StatusPreparing, Limit: 10, Page: 1}, wantCount: 2, wantTotal: 2},
		{name: "page past the end", filter: model.OrderFilter{Limit: 10, Page: 5}, wantCount: 0, wantTotal: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, total, err := repo.List(ctx, tt.filter)

			require.NoError(t, err)
			assert.Len(t, orders, tt.wantCount)
			assert.Equal(t, tt.wantTotal, total)
			for _, o := range orders {
				assert.Len(t, o.Lines, 1)
				assert.NotNil(t, o.Payment)
			}
		})
	}
}

func TestOrderRepository_HasPayment(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, products := seedCatalog(t, pool)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	withPayment := createOrder(t, pool, repo, []model.LineRequest{{ProductID: products["Beer"], Quantity: 1}})

	var withoutPayment int64
	inTx(t, pool, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		withoutPayment, err = repo.Create(ctx, tx, &model.CreateOrderRequest{Address: "Calle Falsa 123", DeliveryTime: "22:00"})
		return err
	})

	has, err := repo.HasPayment(ctx, withPayment)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = repo.HasPayment(ctx, withoutPayment)
	require.NoError(t, err)
	assert.False(t, has)
}

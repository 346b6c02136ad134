package repository

import (
	"context"
	"errors"
	"fmt"

	"kitchen-orders/internal/database"
	"kitchen-orders/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Stored functions invoked by name.
const (
	procCreateOrder        = "create_order"
	procInsertPayment      = "insert_payment"
	procAddOrderLine       = "add_order_line"
	procUpdateLineQuantity = "update_line_quantity"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

const orderColumns = `id, address, delivery_time, observation, client_surname, status, created_at`

func scanOrder(row pgx.Row, order *model.Order) error {
	return row.Scan(
		&order.ID,
		&order.Address,
		&order.DeliveryTime,
		&order.Observation,
		&order.ClientSurname,
		&order.Status,
		&order.CreatedAt,
	)
}

// List retrieves a page of orders with their lines and payment, plus the total row count.
func (r *orderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE ($1::text = '' OR status = $1::text)`,
		filter.Status,
	).Scan(&total)
	if err != nil {
		r.logger.Error().Err(err).Str("status", filter.Status).Msg("failed to count orders")
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1::text = '' OR status = $1::text)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, filter.Status, filter.Limit, filter.Offset())
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, 0, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		var order model.Order
		if err := scanOrder(rows, &order); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := r.loadDetails(ctx, orders); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// GetByID retrieves an order with its lines and payment.
func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	var order model.Order
	err := scanOrder(r.pool.QueryRow(ctx, query, id), &order)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("order_id", id).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("order_id", id).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	orders := []model.Order{order}
	if err := r.loadDetails(ctx, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

// loadDetails attaches lines and payments to the given orders in two queries.
func (r *orderRepository) loadDetails(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
		orders[i].Lines = []model.OrderLine{}
	}

	linesQuery := `
		SELECT ol.order_id, ol.product_id, p.name, c.name, ol.quantity
		FROM order_lines ol
		JOIN products p ON p.id = ol.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE ol.order_id = ANY($1)
		ORDER BY ol.order_id, p.name
	`

	rows, err := r.pool.Query(ctx, linesQuery, ids)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query order lines")
		return fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line model.OrderLine
		if err := rows.Scan(&line.OrderID, &line.ProductID, &line.ProductName, &line.CategoryName, &line.Quantity); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order line row")
			return fmt.Errorf("failed to scan order line: %w", err)
		}
		i := index[line.OrderID]
		orders[i].Lines = append(orders[i].Lines, line)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order line rows")
		return fmt.Errorf("error iterating order lines: %w", err)
	}

	payRows, err := r.pool.Query(ctx,
		`SELECT order_id, method, amount::text, paid_at FROM payments WHERE order_id = ANY($1)`,
		ids,
	)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query payments")
		return fmt.Errorf("failed to query payments: %w", err)
	}
	defer payRows.Close()

	for payRows.Next() {
		payment, err := scanPayment(payRows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan payment row")
			return err
		}
		i := index[payment.OrderID]
		orders[i].Payment = payment
		orders[i].PaidAt = payment.PaidAt
	}
	if err := payRows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating payment rows")
		return fmt.Errorf("error iterating payments: %w", err)
	}

	return nil
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var (
		payment model.Payment
		amount  string
	)
	if err := row.Scan(&payment.OrderID, &payment.Method, &amount, &payment.PaidAt); err != nil {
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse payment amount %q: %w", amount, err)
	}
	payment.Amount = parsed

	return &payment, nil
}

// Exists reports whether an order exists.
func (r *orderRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", id).Msg("failed to check order existence")
		return false, fmt.Errorf("failed to check order existence: %w", err)
	}
	return exists, nil
}

// HasPayment reports whether the order already has a payment row.
func (r *orderRepository) HasPayment(ctx context.Context, orderID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payments WHERE order_id = $1)`, orderID).Scan(&exists)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to check payment existence")
		return false, fmt.Errorf("failed to check payment existence: %w", err)
	}
	return exists, nil
}

// LineExists reports whether the order already contains the product.
func (r *orderRepository) LineExists(ctx context.Context, orderID, productID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM order_lines WHERE order_id = $1 AND product_id = $2)`,
		orderID, productID,
	).Scan(&exists)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Int64("product_id", productID).Msg("failed to check order line")
		return false, fmt.Errorf("failed to check order line: %w", err)
	}
	return exists, nil
}

// LockOrder takes a row lock on the order for the rest of the transaction.
func (r *orderRepository) LockOrder(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	var locked int64
	err := tx.QueryRow(ctx, `SELECT id FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		r.logger.Error().Err(err).Int64("order_id", id).Msg("failed to lock order")
		return false, fmt.Errorf("failed to lock order: %w", err)
	}
	return true, nil
}

// GetPayment reads the order's payment inside the transaction.
func (r *orderRepository) GetPayment(ctx context.Context, tx pgx.Tx, orderID int64) (*model.Payment, error) {
	row := tx.QueryRow(ctx,
		`SELECT order_id, method, amount::text, paid_at FROM payments WHERE order_id = $1`,
		orderID,
	)

	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to query payment")
		return nil, err
	}
	return payment, nil
}

// Create inserts the order header through the create_order stored function.
func (r *orderRepository) Create(ctx context.Context, tx pgx.Tx, req *model.CreateOrderRequest) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, database.ProcedureSQL(procCreateOrder, 4),
		req.Address, req.DeliveryTime, req.Observation, req.ClientSurname,
	).Scan(&id)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to create order")
		return 0, fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().Int64("order_id", id).Msg("order created successfully")

	return id, nil
}

// Update applies a partial header update; nil fields keep their stored value.
func (r *orderRepository) Update(ctx context.Context, tx pgx.Tx, id int64, req *model.UpdateOrderRequest) error {
	query := `
		UPDATE orders SET
			address = COALESCE($2, address),
			delivery_time = COALESCE($3, delivery_time),
			observation = COALESCE($4, observation),
			client_surname = COALESCE($5, client_surname),
			status = COALESCE($6, status)
		WHERE id = $1
	`

	_, err := tx.Exec(ctx, query, id, req.Address, req.DeliveryTime, req.Observation, req.ClientSurname, req.Status)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", id).Msg("failed to update order")
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

// CreatePayment inserts the payment row through the insert_payment stored function.
func (r *orderRepository) CreatePayment(ctx context.Context, tx pgx.Tx, orderID int64, method string, amount decimal.Decimal, paid bool) error {
	_, err := tx.Exec(ctx, database.ProcedureSQL(procInsertPayment, 4), orderID, method, amount.String(), paid)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to create payment")
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// UpdatePayment changes the method and amount of an existing payment.
func (r *orderRepository) UpdatePayment(ctx context.Context, tx pgx.Tx, orderID int64, method string, amount decimal.Decimal) error {
	_, err := tx.Exec(ctx,
		`UPDATE payments SET method = $2, amount = $3::numeric WHERE order_id = $1`,
		orderID, method, amount.String(),
	)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to update payment")
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return nil
}

// MarkPaid sets the payment timestamp of an unpaid payment.
func (r *orderRepository) MarkPaid(ctx context.Context, tx pgx.Tx, orderID int64) (bool, error) {
	tag, err := tx.Exec(ctx,
		`UPDATE payments SET paid_at = NOW() WHERE order_id = $1 AND paid_at IS NULL`,
		orderID,
	)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to mark payment as paid")
		return false, fmt.Errorf("failed to mark payment as paid: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CreateLines inserts every line through a batch of add_order_line calls.
func (r *orderRepository) CreateLines(ctx context.Context, tx pgx.Tx, orderID int64, lines []model.LineRequest) error {
	if len(lines) == 0 {
		return nil
	}

	query := database.ProcedureSQL(procAddOrderLine, 3)

	batch := &pgx.Batch{}
	for _, line := range lines {
		batch.Queue(query, orderID, line.ProductID, line.Quantity)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(lines); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Int64("order_id", orderID).
				Int64("product_id", lines[i].ProductID).
				Msg("failed to create order line")
			return fmt.Errorf("failed to create order line: %w", err)
		}
	}

	r.logger.Debug().
		Int64("order_id", orderID).
		Int("count", len(lines)).
		Msg("order lines created successfully")

	return nil
}

// AddLine inserts a single line.
func (r *orderRepository) AddLine(ctx context.Context, tx pgx.Tx, orderID, productID int64, quantity int) error {
	_, err := tx.Exec(ctx, database.ProcedureSQL(procAddOrderLine, 3), orderID, productID, quantity)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Int64("product_id", productID).Msg("failed to add order line")
		return fmt.Errorf("failed to add order line: %w", err)
	}
	return nil
}

// UpdateLineQuantity changes a line's quantity through the update_line_quantity stored function.
func (r *orderRepository) UpdateLineQuantity(ctx context.Context, tx pgx.Tx, orderID, productID int64, quantity int) (bool, error) {
	var affected int
	err := tx.QueryRow(ctx, database.ProcedureSQL(procUpdateLineQuantity, 3), orderID, productID, quantity).Scan(&affected)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Int64("product_id", productID).Msg("failed to update line quantity")
		return false, fmt.Errorf("failed to update line quantity: %w", err)
	}
	return affected > 0, nil
}

// DeleteLine removes a line.
func (r *orderRepository) DeleteLine(ctx context.Context, tx pgx.Tx, orderID, productID int64) (bool, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM order_lines WHERE order_id = $1 AND product_id = $2`, orderID, productID)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Int64("product_id", productID).Msg("failed to delete order line")
		return false, fmt.Errorf("failed to delete order line: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteLines removes every line of the order.
func (r *orderRepository) DeleteLines(ctx context.Context, tx pgx.Tx, orderID int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM order_lines WHERE order_id = $1`, orderID); err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to delete order lines")
		return fmt.Errorf("failed to delete order lines: %w", err)
	}
	return nil
}

// Delete removes the order.
func (r *orderRepository) Delete(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", id).Msg("failed to delete order")
		return false, fmt.Errorf("failed to delete order: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

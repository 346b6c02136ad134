package repository

import (
	"context"
	"time"

	"kitchen-orders/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// OrderRepository defines the interface for order data access operations.
// Every mutating method runs inside the caller's transaction.
type OrderRepository interface {
	// List retrieves a page of orders with their lines and payment, plus the total row count.
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error)

	// GetByID retrieves an order with its lines and payment. Returns nil when absent.
	GetByID(ctx context.Context, id int64) (*model.Order, error)

	// Exists reports whether an order exists.
	Exists(ctx context.Context, id int64) (bool, error)

	// HasPayment reports whether the order already has a payment row.
	HasPayment(ctx context.Context, orderID int64) (bool, error)

	// LineExists reports whether the order already contains the product.
	LineExists(ctx context.Context, orderID, productID int64) (bool, error)

	// LockOrder takes a row lock on the order for the rest of the transaction.
	// Returns false when the order does not exist.
	LockOrder(ctx context.Context, tx pgx.Tx, id int64) (bool, error)

	// GetPayment reads the order's payment inside the transaction. Returns nil when absent.
	GetPayment(ctx context.Context, tx pgx.Tx, orderID int64) (*model.Payment, error)

	// Create inserts the order header and returns the store-assigned id.
	Create(ctx context.Context, tx pgx.Tx, req *model.CreateOrderRequest) (int64, error)

	// Update applies a partial header update.
	Update(ctx context.Context, tx pgx.Tx, id int64, req *model.UpdateOrderRequest) error

	// CreatePayment inserts the single payment row of an order.
	CreatePayment(ctx context.Context, tx pgx.Tx, orderID int64, method string, amount decimal.Decimal, paid bool) error

	// UpdatePayment changes the method and amount of an existing payment.
	UpdatePayment(ctx context.Context, tx pgx.Tx, orderID int64, method string, amount decimal.Decimal) error

	// MarkPaid sets the payment timestamp of an unpaid payment. Returns false when nothing changed.
	MarkPaid(ctx context.Context, tx pgx.Tx, orderID int64) (bool, error)

	// CreateLines inserts every line in one batch.
	CreateLines(ctx context.Context, tx pgx.Tx, orderID int64, lines []model.LineRequest) error

	// AddLine inserts a single line.
	AddLine(ctx context.Context, tx pgx.Tx, orderID, productID int64, quantity int) error

	// UpdateLineQuantity changes a line's quantity. Returns false when the line does not exist.
	UpdateLineQuantity(ctx context.Context, tx pgx.Tx, orderID, productID int64, quantity int) (bool, error)

	// DeleteLine removes a line. Returns false when the line does not exist.
	DeleteLine(ctx context.Context, tx pgx.Tx, orderID, productID int64) (bool, error)

	// DeleteLines removes every line of the order.
	DeleteLines(ctx context.Context, tx pgx.Tx, orderID int64) error

	// Delete removes the order; lines and payment cascade. Returns false when absent.
	Delete(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
}

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// GetAll retrieves every product ordered by category and name.
	GetAll(ctx context.Context) ([]model.Product, error)

	// GetByID retrieves a single product by its ID. Returns nil when absent.
	GetByID(ctx context.Context, id int64) (*model.Product, error)

	// GetByCategory retrieves the products of one category.
	GetByCategory(ctx context.Context, categoryID int64) ([]model.Product, error)

	// FindByName retrieves a product by exact name within a category. Returns nil when absent.
	FindByName(ctx context.Context, categoryID int64, name string) (*model.Product, error)

	// Search retrieves products whose name contains the term, case-insensitively.
	Search(ctx context.Context, term string) ([]model.Product, error)

	// Count returns the number of products.
	Count(ctx context.Context) (int, error)

	// ValidateProductsExist checks if all provided product IDs exist in the database.
	// Returns a not-found error naming the missing IDs otherwise.
	ValidateProductsExist(ctx context.Context, ids []int64) error

	// Create inserts a product and returns its id.
	Create(ctx context.Context, tx pgx.Tx, req *model.ProductRequest) (int64, error)

	// Update renames a product and/or moves it to another category. Returns false when absent.
	Update(ctx context.Context, tx pgx.Tx, id int64, req *model.ProductUpdateRequest) (bool, error)

	// Delete removes a product. Returns false when absent.
	Delete(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
}

// CategoryRepository defines the interface for category data access operations.
type CategoryRepository interface {
	GetAll(ctx context.Context) ([]model.Category, error)
	GetByID(ctx context.Context, id int64) (*model.Category, error)
	GetByName(ctx context.Context, name string) (*model.Category, error)
	Create(ctx context.Context, tx pgx.Tx, name string) (int64, error)
	Update(ctx context.Context, tx pgx.Tx, id int64, name string) (bool, error)
	Delete(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
}

// FinanceRepository aggregates settled payments.
type FinanceRepository interface {
	// TotalPaid sums payments settled in [from, to), optionally filtered by method.
	TotalPaid(ctx context.Context, from, to time.Time, method string) (decimal.Decimal, int, error)
}

// ClientRepository remembers customers by phone number.
type ClientRepository interface {
	// GetByPhone retrieves a client. Returns nil when absent.
	GetByPhone(ctx context.Context, phone string) (*model.Client, error)

	// Upsert inserts the client or refreshes its name.
	Upsert(ctx context.Context, tx pgx.Tx, client *model.Client) error
}

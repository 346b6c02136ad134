package service

import (
	"context"
	"time"

	"kitchen-orders/internal/model"

	"github.com/shopspring/decimal"
)

// OrderService defines operations for order management. Every mutation runs
// in one transaction and, once committed, invalidates the cache entries it
// made stale and announces the change to the kitchen.
type OrderService interface {
	// List retrieves a page of orders, optionally filtered by status.
	List(ctx context.Context, filter model.OrderFilter) (*model.OrderPage, error)

	// GetByID retrieves an order with its lines and payment.
	GetByID(ctx context.Context, id int64) (*model.Order, error)

	// CreateOrder creates an order with its payment and lines and returns its id.
	CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (int64, error)

	// UpdateOrder applies a partial update. A non-nil line list replaces every line.
	UpdateOrder(ctx context.Context, id int64, req *model.UpdateOrderRequest) error

	// AddProductToOrder adds a new line to an existing order.
	AddProductToOrder(ctx context.Context, orderID, productID int64, quantity int) error

	// UpdateProductQuantity changes the quantity of an existing line.
	UpdateProductQuantity(ctx context.Context, orderID, productID int64, quantity int) error

	// DeleteProductFromOrder removes a line from an order.
	DeleteProductFromOrder(ctx context.Context, orderID, productID int64) error

	// RecordPayment settles the order. Paying an already paid order is a no-op.
	RecordPayment(ctx context.Context, orderID int64, method string, amount decimal.Decimal) error

	// DeleteOrder removes an order together with its lines and payment.
	DeleteOrder(ctx context.Context, id int64) error
}

// ProductService defines operations for product management.
type ProductService interface {
	GetAll(ctx context.Context) ([]model.Product, error)
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	GetByCategory(ctx context.Context, categoryID int64) ([]model.Product, error)

	// Search matches product names containing term. Results are never cached.
	Search(ctx context.Context, term string) ([]model.Product, error)

	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, req *model.ProductRequest) (int64, error)
	Update(ctx context.Context, id int64, req *model.ProductUpdateRequest) error
	Delete(ctx context.Context, id int64) error
}

// CategoryService defines operations for category management.
type CategoryService interface {
	GetAll(ctx context.Context) ([]model.Category, error)
	GetByID(ctx context.Context, id int64) (*model.Category, error)
	Create(ctx context.Context, name string) (int64, error)

	// Update renames a category, invalidating every cached product that embeds its name.
	Update(ctx context.Context, id int64, name string) error

	// Delete removes a category and its products.
	Delete(ctx context.Context, id int64) error
}

// ClientService looks up returning customers.
type ClientService interface {
	// GetByPhone retrieves the client remembered under the phone number.
	GetByPhone(ctx context.Context, phone string) (*model.Client, error)
}

// FinanceService reports totals of settled payments.
type FinanceService interface {
	// Today totals payments settled since local midnight. An empty method means every method.
	Today(ctx context.Context, method string) (*model.FinanceTotal, error)

	// Monthly totals payments settled in the given calendar month.
	Monthly(ctx context.Context, year int, month time.Month, method string) (*model.FinanceTotal, error)
}

// EventPublisher announces committed order changes to kitchen displays.
type EventPublisher interface {
	Publish(ctx context.Context, event model.KitchenEvent) error
}

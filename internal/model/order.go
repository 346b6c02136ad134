package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses.
const (
	StatusPreparing = "preparing"
	StatusReady     = "ready"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// Payment methods.
const (
	PaymentCash     = "cash"
	PaymentTransfer = "transfer"
)

// DeliveryTimeLayout is the wire and storage format of a requested delivery time.
const DeliveryTimeLayout = "15:04"

// Order represents a customer order.
type Order struct {
	ID            int64       `json:"id" db:"id"`
	Address       string      `json:"address" db:"address"`
	DeliveryTime  string      `json:"deliveryTime" db:"delivery_time"`
	Observation   string      `json:"observation" db:"observation"`
	ClientSurname string      `json:"clientSurname" db:"client_surname"`
	Status        string      `json:"status" db:"status"`
	CreatedAt     time.Time   `json:"createdAt" db:"created_at"`
	PaidAt        *time.Time  `json:"paidAt" db:"paid_at"`
	Lines         []OrderLine `json:"products"`
	Payment       *Payment    `json:"payment,omitempty"`
}

// OrderLine is one product within an order, identified by (OrderID, ProductID).
type OrderLine struct {
	OrderID      int64  `json:"-" db:"order_id"`
	ProductID    int64  `json:"productId" db:"product_id"`
	ProductName  string `json:"name" db:"product_name"`
	CategoryName string `json:"category" db:"category_name"`
	Quantity     int    `json:"quantity" db:"quantity"`
}

// Payment is the single payment record of an order. A nil PaidAt means unpaid.
type Payment struct {
	OrderID int64           `json:"-" db:"order_id"`
	Method  string          `json:"method" db:"method"`
	Amount  decimal.Decimal `json:"amount" db:"amount"`
	PaidAt  *time.Time      `json:"paidAt" db:"paid_at"`
}

// IsPaid reports whether the payment has been settled.
func (p *Payment) IsPaid() bool {
	return p != nil && p.PaidAt != nil
}

// LineRequest represents a single product in an order request.
type LineRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// CreateOrderRequest represents the request payload for creating an order.
type CreateOrderRequest struct {
	Address       string          `json:"address"`
	DeliveryTime  string          `json:"deliveryTime"`
	Observation   string          `json:"observation"`
	ClientSurname string          `json:"clientSurname"`
	ClientName    string          `json:"clientName"`
	ClientPhone   string          `json:"clientPhone"`
	Products      []LineRequest   `json:"products"`
	PayMethod     string          `json:"payMethod"`
	Amount        decimal.Decimal `json:"amount"`
}

// UpdateOrderRequest carries a partial order update. Nil fields keep their value;
// a non-nil Products replaces every line of the order.
type UpdateOrderRequest struct {
	Address       *string          `json:"address,omitempty"`
	DeliveryTime  *string          `json:"deliveryTime,omitempty"`
	Observation   *string          `json:"observation,omitempty"`
	ClientSurname *string          `json:"clientSurname,omitempty"`
	Status        *string          `json:"status,omitempty"`
	Products      []LineRequest    `json:"products,omitempty"`
	PayMethod     *string          `json:"payMethod,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
}

// AddProductRequest adds one product line to an existing order.
type AddProductRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// QuantityRequest changes the quantity of an existing line.
type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

// PaymentRequest settles an order.
type PaymentRequest struct {
	PayMethod string          `json:"payMethod"`
	Amount    decimal.Decimal `json:"amount"`
}

// OrderFilter selects a page of orders.
type OrderFilter struct {
	Status string
	Limit  int
	Page   int
}

// Offset returns the row offset of the filter's page.
func (f OrderFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// Pagination describes a page within a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// OrderPage is one page of orders.
type OrderPage struct {
	Data       []Order    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// CreatedResponse carries the id of a newly created resource.
type CreatedResponse struct {
	ID int64 `json:"id"`
}

package model

import (
	"fmt"
	"time"
)

// Kitchen event actions.
const (
	ActionNewOrder    = "NEW_ORDER"
	ActionUpdateOrder = "UPDATE_ORDER"
	ActionDeleteOrder = "DELETE_ORDER"
)

// KitchenProduct is a product as shown on a kitchen display.
type KitchenProduct struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// KitchenEvent is the payload broadcast to kitchen displays when an order changes.
type KitchenEvent struct {
	Action      string           `json:"action"`
	OrderID     int64            `json:"id"`
	Client      string           `json:"client"`
	Products    []KitchenProduct `json:"products"`
	Observation string           `json:"observation"`
	Time        string           `json:"time"`
	Status      string           `json:"status"`
}

// NewKitchenEvent builds an event from a committed order. The order's creation
// time is shown in loc so every worker reports the same wall clock.
func NewKitchenEvent(action string, order *Order, loc *time.Location) KitchenEvent {
	if loc == nil {
		loc = time.UTC
	}

	client := order.ClientSurname
	if client == "" {
		client = fmt.Sprintf("Order #%d", order.ID)
	}

	products := make([]KitchenProduct, 0, len(order.Lines))
	for _, line := range order.Lines {
		products = append(products, KitchenProduct{Name: line.ProductName, Quantity: line.Quantity})
	}

	return KitchenEvent{
		Action:      action,
		OrderID:     order.ID,
		Client:      client,
		Products:    products,
		Observation: order.Observation,
		Time:        order.CreatedAt.In(loc).Format(DeliveryTimeLayout),
		Status:      order.Status,
	}
}

// Validate checks a decoded event before it is relayed.
func (e KitchenEvent) Validate() error {
	switch e.Action {
	case ActionNewOrder, ActionUpdateOrder, ActionDeleteOrder:
	default:
		return fmt.Errorf("unknown event action %q", e.Action)
	}
	if e.OrderID <= 0 {
		return fmt.Errorf("invalid event order id %d", e.OrderID)
	}
	for i, p := range e.Products {
		if p.Quantity <= 0 {
			return fmt.Errorf("product %d: invalid quantity %d", i, p.Quantity)
		}
	}
	return nil
}

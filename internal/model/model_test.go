package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "validation sentinel", err: ErrInvalidQuantity, want: KindValidation},
		{name: "wrapped not found", err: fmt.Errorf("failed to get order: %w", ErrOrderNotFound), want: KindNotFound},
		{name: "conflict", err: ConflictError(ErrCodeConflict, "duplicate", errors.New("23505")), want: KindConflict},
		{name: "transient", err: TransientError("database unavailable", errors.New("dial")), want: KindTransient},
		{name: "plain error", err: errors.New("boom"), want: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestDomainError_IsMatchesByKindAndCode(t *testing.T) {
	err := NotFoundError(ErrCodeOrderNotFound, "Order %d not found", 42)

	assert.True(t, errors.Is(err, ErrOrderNotFound))
	assert.False(t, errors.Is(err, ErrProductNotFound))
	assert.Equal(t, "Order 42 not found", err.Error())
}

func TestDomainError_UnwrapExposesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := TransientError("database unavailable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestNewKitchenEvent(t *testing.T) {
	created := time.Date(2024, 5, 1, 20, 7, 0, 0, time.UTC)
	order := &Order{
		ID:          7,
		Observation: "no onions",
		Status:      StatusPreparing,
		CreatedAt:   created,
		Lines: []OrderLine{
			{ProductID: 1, ProductName: "Pizza", Quantity: 2},
			{ProductID: 2, ProductName: "Beer", Quantity: 1},
		},
	}

	event := NewKitchenEvent(ActionNewOrder, order, time.UTC)

	assert.Equal(t, ActionNewOrder, event.Action)
	assert.Equal(t, int64(7), event.OrderID)
	assert.Equal(t, "Order #7", event.Client)
	assert.Equal(t, "20:07", event.Time)
	assert.Equal(t, []KitchenProduct{{Name: "Pizza", Quantity: 2}, {Name: "Beer", Quantity: 1}}, event.Products)
	require.NoError(t, event.Validate())

	order.ClientSurname = "Simpson"
	assert.Equal(t, "Simpson", NewKitchenEvent(ActionUpdateOrder, order, time.UTC).Client)
}

func TestNewKitchenEvent_TimeInConfiguredZone(t *testing.T) {
	// The same instant as seen by two workers running in different local zones.
	created := time.Date(2024, 5, 1, 23, 40, 0, 0, time.UTC)
	tokyo := &Order{ID: 1, CreatedAt: created.In(time.FixedZone("JST", 9*60*60))}
	lima := &Order{ID: 1, CreatedAt: created.In(time.FixedZone("PET", -5*60*60))}
	shop := time.FixedZone("UTC-03:00", -3*60*60)

	assert.Equal(t, "20:40", NewKitchenEvent(ActionNewOrder, tokyo, shop).Time)
	assert.Equal(t, "20:40", NewKitchenEvent(ActionNewOrder, lima, shop).Time)
	assert.Equal(t, "23:40", NewKitchenEvent(ActionNewOrder, lima, nil).Time)
}

func TestKitchenEvent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		event   KitchenEvent
		wantErr bool
	}{
		{name: "valid delete without products", event: KitchenEvent{Action: ActionDeleteOrder, OrderID: 1}},
		{name: "unknown action", event: KitchenEvent{Action: "PING", OrderID: 1}, wantErr: true},
		{name: "missing id", event: KitchenEvent{Action: ActionNewOrder}, wantErr: true},
		{
			name:    "zero quantity",
			event:   KitchenEvent{Action: ActionNewOrder, OrderID: 1, Products: []KitchenProduct{{Name: "x"}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPayment_IsPaid(t *testing.T) {
	var missing *Payment
	assert.False(t, missing.IsPaid())

	p := &Payment{Method: PaymentCash, Amount: decimal.NewFromInt(900)}
	assert.False(t, p.IsPaid())

	now := time.Now()
	p.PaidAt = &now
	assert.True(t, p.IsPaid())
}

func TestOrderFilter_Offset(t *testing.T) {
	assert.Equal(t, 0, OrderFilter{Limit: 10, Page: 0}.Offset())
	assert.Equal(t, 0, OrderFilter{Limit: 10, Page: 1}.Offset())
	assert.Equal(t, 20, OrderFilter{Limit: 10, Page: 3}.Offset())
}

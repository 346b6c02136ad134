package model

import "time"

// Client is a returning customer, remembered by phone number so the counter
// can fill in the name on the next order.
type Client struct {
	Phone     string    `json:"phone" db:"phone"`
	Name      string    `json:"name" db:"name"`
	Surname   string    `json:"surname" db:"surname"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// ClientFromOrder returns the client captured by an order request, or nil when
// the request carries no phone number.
func ClientFromOrder(req *CreateOrderRequest) *Client {
	if req == nil || req.ClientPhone == "" {
		return nil
	}
	return &Client{Phone: req.ClientPhone, Name: req.ClientName, Surname: req.ClientSurname}
}

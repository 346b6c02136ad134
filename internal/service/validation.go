package service

import (
	"math"
	"regexp"
	"strings"
	"time"

	"kitchen-orders/internal/model"

	"github.com/shopspring/decimal"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
	minSearchLength  = 2

	// maxQuantity is the largest value an INTEGER column holds.
	maxQuantity = math.MaxInt32

	// amountScale is the number of decimal places of a NUMERIC(12, 2) amount.
	amountScale = 2
)

var (
	// maxAmount is the exclusive upper bound of a NUMERIC(12, 2) amount.
	maxAmount = decimal.New(1, 10)

	phonePattern = regexp.MustCompile(`^\+?[0-9]{6,20}$`)
)

func validateQuantity(quantity int) error {
	if quantity <= 0 {
		return model.ValidationError(model.ErrCodeInvalidQuantity, "Invalid quantity %d: must be a positive integer", quantity)
	}
	if quantity > maxQuantity {
		return model.ValidationError(model.ErrCodeInvalidQuantity, "Invalid quantity %d: must not exceed %d", quantity, maxQuantity)
	}
	return nil
}

func validateID(id int64, what string) error {
	if id <= 0 {
		return model.ValidationError(model.ErrCodeInvalidID, "Invalid %s id %d", what, id)
	}
	return nil
}

// validateLines checks every quantity before anything else so a bad quantity
// never reaches the store.
func validateLines(lines []model.LineRequest) error {
	if len(lines) == 0 {
		return model.ErrEmptyOrder
	}

	for _, line := range lines {
		if err := validateQuantity(line.Quantity); err != nil {
			return err
		}
	}

	seen := make(map[int64]struct{}, len(lines))
	for _, line := range lines {
		if err := validateID(line.ProductID, "product"); err != nil {
			return err
		}
		if _, dup := seen[line.ProductID]; dup {
			return model.ValidationError(model.ErrCodeValidation, "Product %d is listed more than once", line.ProductID)
		}
		seen[line.ProductID] = struct{}{}
	}

	return nil
}

func validateDeliveryTime(value string) error {
	if len(value) != len(model.DeliveryTimeLayout) {
		return model.ValidationError(model.ErrCodeInvalidTime, "Invalid delivery time %q: expected HH:MM", value)
	}
	if _, err := time.Parse(model.DeliveryTimeLayout, value); err != nil {
		return model.ValidationError(model.ErrCodeInvalidTime, "Invalid delivery time %q: expected HH:MM", value)
	}
	return nil
}

func validateStatus(status string) error {
	switch status {
	case model.StatusPreparing, model.StatusReady, model.StatusDelivered, model.StatusCancelled:
		return nil
	}
	return model.ValidationError(model.ErrCodeInvalidStatus, "Invalid status %q", status)
}

func validatePayMethod(method string) error {
	switch method {
	case model.PaymentCash, model.PaymentTransfer:
		return nil
	}
	return model.ValidationError(model.ErrCodeInvalidPayment, "Invalid payment method %q: must be cash or transfer", method)
}

func validateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return model.ValidationError(model.ErrCodeInvalidPayment, "Invalid amount %s: must not be negative", amount)
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return model.ValidationError(model.ErrCodeInvalidPayment, "Invalid amount %s: must be less than %s", amount, maxAmount)
	}
	if !amount.Equal(amount.Truncate(amountScale)) {
		return model.ValidationError(model.ErrCodeInvalidPayment, "Invalid amount %s: at most %d decimal places", amount, amountScale)
	}
	return nil
}

// validatePhone returns the trimmed phone number.
func validatePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return "", model.ValidationError(model.ErrCodeInvalidPhone, "Invalid phone %q: expected 6 to 20 digits", phone)
	}
	return phone, nil
}

func validateName(name, what string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", model.ValidationError(model.ErrCodeMissingField, "%s name is required", what)
	}
	return name, nil
}

func validateCreateOrder(req *model.CreateOrderRequest) error {
	if req == nil {
		return model.ValidationError(model.ErrCodeInvalidJSON, "Order request is required")
	}

	// Quantities first: a bad quantity must fail before any other check.
	if err := validateLines(req.Products); err != nil {
		return err
	}

	if strings.TrimSpace(req.Address) == "" {
		return model.ValidationError(model.ErrCodeMissingField, "Address is required")
	}
	if err := validateDeliveryTime(req.DeliveryTime); err != nil {
		return err
	}
	if req.ClientPhone != "" {
		phone, err := validatePhone(req.ClientPhone)
		if err != nil {
			return err
		}
		req.ClientPhone = phone
	}
	if err := validatePayMethod(req.PayMethod); err != nil {
		return err
	}
	return validateAmount(req.Amount)
}

func validateUpdateOrder(req *model.UpdateOrderRequest) error {
	if req == nil {
		return model.ValidationError(model.ErrCodeInvalidJSON, "Order update is required")
	}

	if req.Products != nil {
		if err := validateLines(req.Products); err != nil {
			return err
		}
	}

	if req.Address != nil && strings.TrimSpace(*req.Address) == "" {
		return model.ValidationError(model.ErrCodeMissingField, "Address cannot be empty")
	}
	if req.DeliveryTime != nil {
		if err := validateDeliveryTime(*req.DeliveryTime); err != nil {
			return err
		}
	}
	if req.Status != nil {
		if err := validateStatus(*req.Status); err != nil {
			return err
		}
	}
	if req.PayMethod != nil {
		if err := validatePayMethod(*req.PayMethod); err != nil {
			return err
		}
	}
	if req.Amount != nil {
		if err := validateAmount(*req.Amount); err != nil {
			return err
		}
	}
	return nil
}

// normaliseFilter applies the default and maximum page size.
func normaliseFilter(filter model.OrderFilter) (model.OrderFilter, error) {
	if filter.Status != "" {
		if err := validateStatus(filter.Status); err != nil {
			return filter, err
		}
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	return filter, nil
}

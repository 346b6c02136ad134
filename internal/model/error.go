package model

import (
	"errors"
	"fmt"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON      = "INVALID_JSON"
	ErrCodeMissingField     = "MISSING_FIELD"
	ErrCodeInvalidID        = "INVALID_ID"
	ErrCodeInvalidQuantity  = "INVALID_QUANTITY"
	ErrCodeInvalidStatus    = "INVALID_STATUS"
	ErrCodeInvalidPayment   = "INVALID_PAYMENT"
	ErrCodeInvalidTime      = "INVALID_DELIVERY_TIME"
	ErrCodeInvalidPhone     = "INVALID_PHONE"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeOrderNotFound    = "ORDER_NOT_FOUND"
	ErrCodeProductNotFound  = "PRODUCT_NOT_FOUND"
	ErrCodeCategoryNotFound = "CATEGORY_NOT_FOUND"
	ErrCodeLineNotFound     = "ORDER_LINE_NOT_FOUND"
	ErrCodeClientNotFound   = "CLIENT_NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeDuplicateLine    = "DUPLICATE_ORDER_LINE"
	ErrCodeUnavailable      = "SERVICE_UNAVAILABLE"
	ErrCodeUnauthorised     = "UNAUTHORIZED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// ErrorKind classifies a failure for callers that need to react to it.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindTransient  ErrorKind = "transient"
	KindInternal   ErrorKind = "internal"
)

// DomainError is the error type returned by services and classified stores.
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches domain errors by kind and code so sentinels work with errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// ValidationError reports malformed input.
func ValidationError(code, format string, args ...any) *DomainError {
	return NewDomainError(KindValidation, code, fmt.Sprintf(format, args...))
}

// NotFoundError reports a missing resource.
func NotFoundError(code, format string, args ...any) *DomainError {
	return NewDomainError(KindNotFound, code, fmt.Sprintf(format, args...))
}

// ConflictError reports a write rejected by a uniqueness or reference rule.
func ConflictError(code, message string, err error) *DomainError {
	return &DomainError{Kind: KindConflict, Code: code, Message: message, Err: err}
}

// TransientError reports an infrastructure failure that may succeed on retry.
func TransientError(message string, err error) *DomainError {
	return &DomainError{Kind: KindTransient, Code: ErrCodeUnavailable, Message: message, Err: err}
}

// InternalError wraps an unexpected failure.
func InternalError(message string, err error) *DomainError {
	return &DomainError{Kind: KindInternal, Code: ErrCodeInternalError, Message: message, Err: err}
}

// KindOf returns the kind of the first DomainError in err's chain, or KindInternal.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Common domain errors
var (
	ErrInvalidQuantity = NewDomainError(KindValidation, ErrCodeInvalidQuantity, "Quantity must be a positive integer")
	ErrEmptyOrder      = NewDomainError(KindValidation, ErrCodeMissingField, "Order must contain at least one product")
	ErrOrderNotFound   = NewDomainError(KindNotFound, ErrCodeOrderNotFound, "Order not found")
	ErrProductNotFound = NewDomainError(KindNotFound, ErrCodeProductNotFound, "Product not found")
	ErrCategoryMissing = NewDomainError(KindNotFound, ErrCodeCategoryNotFound, "Category not found")
	ErrLineNotFound    = NewDomainError(KindNotFound, ErrCodeLineNotFound, "Product not found in order")
	ErrClientNotFound  = NewDomainError(KindNotFound, ErrCodeClientNotFound, "Client not found")
	ErrDuplicateLine   = NewDomainError(KindConflict, ErrCodeDuplicateLine, "Product already exists in order")
)

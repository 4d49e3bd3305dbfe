package service

import (
	"errors"
	"fmt"
	"storefront-checkout/internal/model"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrForbidden        = errors.New("forbidden")
	ErrConcurrentUpdate = errors.New("order was modified concurrently")
)

// ValidationError rejects a malformed or inconsistent request before any side effect.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// PaymentDeclinedError means the gateway refused the charge. Nothing was written.
type PaymentDeclinedError struct {
	Code      string
	Message   string
	Duplicate bool
}

func (e *PaymentDeclinedError) Error() string {
	return fmt.Sprintf("payment declined (%s): %s", e.Code, e.Message)
}

// PaymentGatewayUnavailableError is retryable by the customer. Nothing was written.
type PaymentGatewayUnavailableError struct {
	Message string
	Err     error
}

func (e *PaymentGatewayUnavailableError) Error() string {
	return e.Message
}

func (e *PaymentGatewayUnavailableError) Unwrap() error { return e.Err }

// OrderPersistenceFailedAfterPaymentError means the card was charged but no order exists.
// It must reach an operator for refund or replay with the same transaction id.
type OrderPersistenceFailedAfterPaymentError struct {
	TransactionID string
	ReferenceID   string
	OrderNumber   string
	Amount        model.Money
	Err           error
}

func (e *OrderPersistenceFailedAfterPaymentError) Error() string {
	return fmt.Sprintf("order persistence failed after payment %s: %v", e.TransactionID, e.Err)
}

func (e *OrderPersistenceFailedAfterPaymentError) Unwrap() error { return e.Err }

// CheckoutInProgressError is returned while another request holds the same idempotency key.
type CheckoutInProgressError struct {
	Key string
}

func (e *CheckoutInProgressError) Error() string {
	return "a checkout with this idempotency key is already in progress"
}

type InvalidTransitionError struct {
	Kind string
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition from %s to %s", e.Kind, e.From, e.To)
}

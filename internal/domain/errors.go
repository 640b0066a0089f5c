package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found or is not
	// owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuantity indicates a line quantity below 1.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrEmptyCart indicates an attempt to confirm a cart with no lines.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrProductInactive indicates the product is no longer sold.
	ErrProductInactive = errors.New("product is not active")

	// ErrMissingPaymentProof indicates a bank-transfer confirmation without
	// an uploaded proof reference.
	ErrMissingPaymentProof = errors.New("payment proof required for bank transfer")

	// ErrUnsupportedPaymentMethod indicates a payment method outside the
	// accepted set.
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")

	// ErrUnknownStatus indicates a status value outside the state machine.
	ErrUnknownStatus = errors.New("unknown order status")

	// ErrNoAffiliate indicates a commission operation on an order that has
	// no referring affiliate.
	ErrNoAffiliate = errors.New("order has no referring affiliate")

	// ErrOrderSequenceExhausted indicates more than 999 confirmations in a
	// single calendar day.
	ErrOrderSequenceExhausted = errors.New("daily order number sequence exhausted")
)

// InsufficientStockError reports a stock check or decrement failure.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// MissingDeliveryInfoError reports which delivery field was absent at
// confirmation time.
type MissingDeliveryInfoError struct {
	Field string
}

func (e *MissingDeliveryInfoError) Error() string {
	return fmt.Sprintf("missing delivery info: %s", e.Field)
}

// InvalidTransitionError reports an order status transition outside the
// state machine table.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order transition %s -> %s", e.From, e.To)
}

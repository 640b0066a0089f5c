package order

import (
	"context"

	"tienda-marketplace/internal/domain"

	"github.com/shopspring/decimal"
)

type ConfirmInput struct {
	Delivery      domain.DeliveryInfo
	PaymentMethod domain.PaymentMethod
	PaymentProof  *string
}

type Repository interface {
	// GetOrCreateCart returns the user's single CART order, creating an
	// empty one with the given frozen commission rate when absent. Safe
	// under concurrent calls for the same user.
	GetOrCreateCart(ctx context.Context, userID string, commissionRate decimal.Decimal) (*domain.Order, error)
	GetCart(ctx context.Context, userID string) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListByAffiliate(ctx context.Context, affiliateID string) ([]domain.Order, error)

	// AddItem merges quantity into an existing line for the same product or
	// inserts a new line capturing the current unit price, then recomputes
	// totals. The affiliate is attached only when the cart has none yet.
	AddItem(ctx context.Context, cartID, productID string, quantity int, affiliateID *string) error
	UpdateLineQuantity(ctx context.Context, cartID, lineID string, quantity int) error
	RemoveLine(ctx context.Context, cartID, lineID string) error

	// Confirm runs the whole CART -> CONFIRMED step in one transaction:
	// stock re-validation and decrement, order number assignment, delivery
	// and payment snapshot, confirmation timestamp.
	Confirm(ctx context.Context, cartID string, in ConfirmInput) (*domain.Order, error)
	// Cancel restores physical stock for orders that had been confirmed and
	// marks the order CANCELLED.
	Cancel(ctx context.Context, orderID string) (*domain.Order, error)
	// SetStatus advances fulfillment (PROCESSING, SHIPPED, DELIVERED).
	SetStatus(ctx context.Context, orderID string, target domain.OrderStatus) (*domain.Order, error)
	// MarkCommissionPaid is an idempotent no-op on an already-paid order.
	MarkCommissionPaid(ctx context.Context, orderID string) (*domain.Order, error)
}

package order

import (
	"context"
	"strings"

	"tienda-marketplace/internal/domain"
	orderrepo "tienda-marketplace/internal/repository/order"

	"go.uber.org/zap"
)

// Notifier consumes a freshly confirmed order. Delivery is best effort;
// failures never affect the order.
type Notifier interface {
	OrderConfirmed(ctx context.Context, ord *domain.Order) error
}

type Service struct {
	orders   orderRepo
	notifier Notifier
	logger   *zap.Logger
}

type orderRepo interface {
	GetCart(ctx context.Context, userID string) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListByAffiliate(ctx context.Context, affiliateID string) ([]domain.Order, error)
	Confirm(ctx context.Context, cartID string, in orderrepo.ConfirmInput) (*domain.Order, error)
	Cancel(ctx context.Context, orderID string) (*domain.Order, error)
	SetStatus(ctx context.Context, orderID string, target domain.OrderStatus) (*domain.Order, error)
	MarkCommissionPaid(ctx context.Context, orderID string) (*domain.Order, error)
}

func New(orders orderRepo, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{orders: orders, notifier: notifier, logger: logger}
}

type ConfirmInput struct {
	Delivery      domain.DeliveryInfo  `json:"delivery"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	PaymentProof  string               `json:"paymentProof,omitempty"`
}

// Confirm turns the user's cart into a confirmed order. Validation happens
// here; the stock re-check, number assignment and status write happen in
// one repository transaction.
func (s *Service) Confirm(ctx context.Context, userID string, in ConfirmInput) (*domain.Order, error) {
	cart, err := s.orders.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	switch in.PaymentMethod {
	case domain.PaymentCashOnDelivery, domain.PaymentBankTransfer, domain.PaymentCard:
	default:
		return nil, domain.ErrUnsupportedPaymentMethod
	}

	if err := domain.ValidateDelivery(in.Delivery, in.PaymentMethod, cart.HasPhysicalLine()); err != nil {
		return nil, err
	}

	var proof *string
	if p := strings.TrimSpace(in.PaymentProof); p != "" {
		proof = &p
	}
	if in.PaymentMethod == domain.PaymentBankTransfer && proof == nil {
		return nil, domain.ErrMissingPaymentProof
	}

	ord, err := s.orders.Confirm(ctx, cart.ID, orderrepo.ConfirmInput{
		Delivery:      in.Delivery,
		PaymentMethod: in.PaymentMethod,
		PaymentProof:  proof,
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.OrderConfirmed(ctx, ord); err != nil {
			s.logger.Warn("order confirmation notification failed",
				zap.String("order_id", ord.ID), zap.Error(err))
		}
	}
	return ord, nil
}

func (s *Service) Cancel(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orders.Cancel(ctx, orderID)
}

// SetStatus advances fulfillment. Cancellation routes through Cancel so
// stock restoration always happens with the status write.
func (s *Service) SetStatus(ctx context.Context, orderID string, target domain.OrderStatus) (*domain.Order, error) {
	if !domain.ValidStatus(target) {
		return nil, domain.ErrUnknownStatus
	}
	if target == domain.StatusCancelled {
		return s.orders.Cancel(ctx, orderID)
	}
	return s.orders.SetStatus(ctx, orderID, target)
}

func (s *Service) MarkCommissionPaid(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orders.MarkCommissionPaid(ctx, orderID)
}

// GetForUser fetches an order only when it belongs to the caller.
func (s *Service) GetForUser(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	ord, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ord.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return ord, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// ListReferred returns the orders an affiliate earned (or will earn)
// commission on.
func (s *Service) ListReferred(ctx context.Context, affiliateID string) ([]domain.Order, error) {
	return s.orders.ListByAffiliate(ctx, affiliateID)
}

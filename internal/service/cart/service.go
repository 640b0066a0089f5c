package cart

import (
	"context"
	"errors"
	"strings"

	"tienda-marketplace/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service struct {
	orders      orderRepo
	products    productRepo
	users       userRepo
	defaultRate decimal.Decimal
	logger      *zap.Logger
}

type orderRepo interface {
	GetOrCreateCart(ctx context.Context, userID string, commissionRate decimal.Decimal) (*domain.Order, error)
	GetCart(ctx context.Context, userID string) (*domain.Order, error)
	AddItem(ctx context.Context, cartID, productID string, quantity int, affiliateID *string) error
	UpdateLineQuantity(ctx context.Context, cartID, lineID string, quantity int) error
	RemoveLine(ctx context.Context, cartID, lineID string) error
}

type productRepo interface {
	IsAffiliate(ctx context.Context, productID, userID string) (bool, error)
}

type userRepo interface {
	GetByReferralCode(ctx context.Context, code string) (*domain.User, error)
}

func New(orders orderRepo, products productRepo, users userRepo, defaultRate decimal.Decimal, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{orders: orders, products: products, users: users, defaultRate: defaultRate, logger: logger}
}

type AddItemInput struct {
	ProductID    string `json:"productId"`
	Quantity     int    `json:"quantity"`
	ReferralCode string `json:"referralCode,omitempty"`
}

// GetOrCreate returns the user's cart, creating an empty one with the
// platform's current default commission rate frozen onto it.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (*domain.Order, error) {
	return s.orders.GetOrCreateCart(ctx, userID, s.defaultRate)
}

func (s *Service) AddItem(ctx context.Context, userID string, in AddItemInput) (*domain.Order, error) {
	if in.Quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	if strings.TrimSpace(in.ProductID) == "" {
		return nil, domain.ErrNotFound
	}

	cart, err := s.orders.GetOrCreateCart(ctx, userID, s.defaultRate)
	if err != nil {
		return nil, err
	}

	var affiliateID *string
	if code := strings.TrimSpace(in.ReferralCode); code != "" && cart.AffiliateID == nil {
		affiliateID = s.resolveAffiliate(ctx, code, in.ProductID)
	}

	if err := s.orders.AddItem(ctx, cart.ID, in.ProductID, in.Quantity, affiliateID); err != nil {
		return nil, err
	}
	return s.orders.GetCart(ctx, userID)
}

func (s *Service) UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) (*domain.Order, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	cart, err := s.orders.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.orders.UpdateLineQuantity(ctx, cart.ID, lineID, quantity); err != nil {
		return nil, err
	}
	return s.orders.GetCart(ctx, userID)
}

func (s *Service) RemoveItem(ctx context.Context, userID, lineID string) (*domain.Order, error) {
	cart, err := s.orders.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.orders.RemoveLine(ctx, cart.ID, lineID); err != nil {
		return nil, err
	}
	return s.orders.GetCart(ctx, userID)
}

// resolveAffiliate maps a referral code to a user currently affiliated with
// the product. A stale or foreign code is ignored rather than failing the
// purchase.
func (s *Service) resolveAffiliate(ctx context.Context, code, productID string) *string {
	u, err := s.users.GetByReferralCode(ctx, code)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("referral lookup failed", zap.String("code", code), zap.Error(err))
		}
		return nil
	}
	ok, err := s.products.IsAffiliate(ctx, productID, u.ID)
	if err != nil {
		s.logger.Warn("affiliate check failed", zap.String("code", code), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	return &u.ID
}

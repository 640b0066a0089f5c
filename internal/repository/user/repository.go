package user

import (
	"context"

	"tienda-marketplace/internal/domain"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByReferralCode resolves the code embedded in a shared affiliate
	// link to its owner.
	GetByReferralCode(ctx context.Context, code string) (*domain.User, error)
}

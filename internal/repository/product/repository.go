package product

import (
	"context"

	"tienda-marketplace/internal/domain"
)

type Repository interface {
	List(ctx context.Context, typeFilter *domain.ProductType) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// IsAffiliate reports whether the user is currently affiliated with the
	// product and may earn commission on its sales.
	IsAffiliate(ctx context.Context, productID, userID string) (bool, error)
	ReduceStock(ctx context.Context, productID string, quantity int) error
	RestoreStock(ctx context.Context, productID string, quantity int) error
}

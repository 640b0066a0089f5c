package catalog

import (
	"context"

	"tienda-marketplace/internal/domain"
	productrepo "tienda-marketplace/internal/repository/product"
)

type Service struct {
	repo productrepo.Repository
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo}
}

// List returns active products, optionally restricted to one product type
// (the storefront shows physical and digital goods separately).
func (s *Service) List(ctx context.Context, typeFilter *domain.ProductType) ([]domain.Product, error) {
	return s.repo.List(ctx, typeFilter)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

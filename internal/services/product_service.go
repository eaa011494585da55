package services

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// ErrInvalidProduct is returned for catalog snapshots that cannot be priced.
var ErrInvalidProduct = errors.New("invalid product snapshot")

// ProductService exposes the catalog snapshot checkout prices against.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	return product, notFoundAs(err, ErrProductNotFound)
}

// SyncProduct stores the latest price and stock pushed by the catalog.
func (s *ProductService) SyncProduct(ctx context.Context, product *models.Product) error {
	if product.Price.IsNegative() || product.Stock < 0 || product.WeightKg.IsNegative() {
		return fmt.Errorf("%w: price, stock and weight must not be negative", ErrInvalidProduct)
	}
	return s.repo.Upsert(ctx, product)
}

package repositories

import (
	"context"

	"storefront/internal/models"
)

// ProductRepository defines read access to the catalog snapshot used at checkout.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Upsert(ctx context.Context, product *models.Product) error
}

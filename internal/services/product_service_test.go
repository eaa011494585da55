package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Upsert(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func TestProductService_GetProductByID(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo)

	expectedProduct := &models.Product{ID: "1", Name: "Product A", Price: decimal.NewFromInt(10), Stock: 100}

	mockRepo.On("GetByID", ctx, "1").Return(expectedProduct, nil).Once()
	product, err := service.GetProductByID(ctx, "1")
	assert.NoError(t, err)
	assert.Equal(t, expectedProduct, product)

	mockRepo.On("GetByID", ctx, "99").Return(nil, fmt.Errorf("product with ID 99: %w", repositories.ErrNotFound)).Once()
	product, err = service.GetProductByID(ctx, "99")
	assert.Nil(t, product)
	assert.True(t, errors.Is(err, services.ErrProductNotFound))
	mockRepo.AssertExpectations(t)
}

func TestProductService_SyncProduct(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo)

	product := &models.Product{ID: "1", Name: "Product A", Price: decimal.NewFromInt(12), Stock: 95}
	mockRepo.On("Upsert", ctx, product).Return(nil).Once()
	assert.NoError(t, service.SyncProduct(ctx, product))

	mockRepo.On("Upsert", ctx, product).Return(fmt.Errorf("database error")).Once()
	err := service.SyncProduct(ctx, product)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database error")

	err = service.SyncProduct(ctx, &models.Product{ID: "2", Name: "Broken", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, services.ErrInvalidProduct)
	mockRepo.AssertExpectations(t)
}

package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMPaymentRepository is a GORM implementation of PaymentRepository.
type GORMPaymentRepository struct {
	db *gorm.DB
}

// NewGORMPaymentRepository creates a new instance of GORMPaymentRepository.
func NewGORMPaymentRepository(db *gorm.DB) *GORMPaymentRepository {
	return &GORMPaymentRepository{db: db}
}

// Consume inserts the payment id, relying on the primary key to reject duplicates. A
// duplicate that belongs to another order is reported as ErrConflict.
func (r *GORMPaymentRepository) Consume(ctx context.Context, paymentID, orderID string) (*models.ConsumedPayment, bool, error) {
	record := models.ConsumedPayment{PaymentID: paymentID, OrderID: orderID, ConsumedAt: time.Now().UTC()}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to consume payment %s: %w", paymentID, res.Error)
	}
	if res.RowsAffected == 1 {
		return &record, true, nil
	}

	var existing models.ConsumedPayment
	if err := r.db.WithContext(ctx).First(&existing, "payment_id = ?", paymentID).Error; err != nil {
		return nil, false, fmt.Errorf("failed to load consumed payment %s: %w", paymentID, err)
	}
	if existing.OrderID != orderID {
		return &existing, false, fmt.Errorf("payment %s already applied to order %s: %w", paymentID, existing.OrderID, ErrConflict)
	}
	return &existing, false, nil
}

// FindConsumed returns the record of an applied payment id, or ErrNotFound.
func (r *GORMPaymentRepository) FindConsumed(ctx context.Context, paymentID string) (*models.ConsumedPayment, error) {
	var existing models.ConsumedPayment
	err := r.db.WithContext(ctx).First(&existing, "payment_id = ?", paymentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("consumed payment %s: %w", paymentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check payment %s: %w", paymentID, err)
	}
	return &existing, nil
}

package repositories

import (
	"context"

	"storefront/internal/models"
)

// PaymentRepository persists the set of gateway payment ids already applied to orders.
type PaymentRepository interface {
	// Consume records paymentID against orderID. When the id was already consumed for the
	// same order it returns the existing record and false; for another order, ErrConflict.
	Consume(ctx context.Context, paymentID, orderID string) (*models.ConsumedPayment, bool, error)
	FindConsumed(ctx context.Context, paymentID string) (*models.ConsumedPayment, error)
}

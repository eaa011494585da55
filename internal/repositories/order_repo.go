package repositories

import (
	"context"
	"time"

	"storefront/internal/models"
)

// OrderRepository defines the interface for order data access.
// Orders are never deleted; cancellation is a status.
type OrderRepository interface {
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByOrderNumber(ctx context.Context, number string) (*models.Order, error)
	GetByPaymentOrderID(ctx context.Context, paymentOrderID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	// CompareAndUpdate applies fields only while the order is still in the expected status.
	CompareAndUpdate(ctx context.Context, id string, expected models.OrderStatus, fields map[string]any) (bool, error)
	// UpdateShipment writes the shipment columns and nothing else. With statuses it only
	// writes while the order is in one of them. It reports whether a row was written.
	UpdateShipment(ctx context.Context, id string, shipment models.ShipmentRef, statuses ...models.OrderStatus) (bool, error)
	// ClaimBooking marks an active order as being booked with the carrier. Only one
	// caller wins until the claim is released or older than lease.
	ClaimBooking(ctx context.Context, id string, lease time.Duration) (bool, error)
	// ListPendingShipments returns orders with unfinished carrier work (incomplete bookings,
	// or live bookings of cancelled orders) that have not been touched since before.
	ListPendingShipments(ctx context.Context, before time.Time, maxAttempts, limit int) ([]models.Order, error)
}

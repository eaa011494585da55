package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

func (r *GORMOrderRepository) first(ctx context.Context, what, column, value string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&order, column+" = ?", value).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with %s %s: %w", what, value, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by %s %s: %w", what, value, err)
	}
	return &order, nil
}

// GetByID returns an order and its items by ID.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return r.first(ctx, "ID", "id", id)
}

// GetByOrderNumber returns an order by its public order number.
func (r *GORMOrderRepository) GetByOrderNumber(ctx context.Context, number string) (*models.Order, error) {
	return r.first(ctx, "number", "order_number", number)
}

// GetByPaymentOrderID returns the order a payment gateway order belongs to.
func (r *GORMOrderRepository) GetByPaymentOrderID(ctx context.Context, paymentOrderID string) (*models.Order, error) {
	return r.first(ctx, "payment order ID", "payment_order_id", paymentOrderID)
}

// ListByUser returns a user's orders, newest first.
func (r *GORMOrderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for user %s: %w", userID, err)
	}
	return orders, nil
}

// Create inserts an order together with its line items.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if !order.Status.IsValid() {
		return fmt.Errorf("failed to create order: unknown status %q", order.Status)
	}
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.New().String()
		}
		order.Items[i].OrderID = order.ID
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// CompareAndUpdate updates the order only if its status still equals expected.
func (r *GORMOrderRepository) CompareAndUpdate(ctx context.Context, id string, expected models.OrderStatus, fields map[string]any) (bool, error) {
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now().UTC()
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(fields)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update order %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// UpdateShipment persists the shipment reference of an order. When statuses are given
// the write only applies while the order is in one of them.
func (r *GORMOrderRepository) UpdateShipment(ctx context.Context, id string, shipment models.ShipmentRef, statuses ...models.OrderStatus) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	res := q.Updates(map[string]any{
		"shipment_id":         shipment.ShipmentID,
		"carrier_order_id":    shipment.CarrierOrderID,
		"awb_code":            shipment.AWBCode,
		"courier_name":        shipment.CourierName,
		"shipment_status":     shipment.Status,
		"shipment_last_error": shipment.LastError,
		"shipment_attempts":   shipment.Attempts,
		"updated_at":          time.Now().UTC(),
	})
	if res.Error != nil {
		return false, fmt.Errorf("failed to update shipment for order %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ClaimBooking moves an active, unbooked order to the booking shipment status. A claim
// older than lease is treated as abandoned and may be taken over.
func (r *GORMOrderRepository) ClaimBooking(ctx context.Context, id string, lease time.Duration) (bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ? AND (shipment_id = '' OR shipment_id IS NULL)", id, models.FulfillableStatuses).
		Where("(shipment_status = ? OR (shipment_status = ? AND updated_at < ?))",
			models.ShipmentUnprovisioned, models.ShipmentBooking, now.Add(-lease)).
		Updates(map[string]any{
			"shipment_status": models.ShipmentBooking,
			"updated_at":      now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim booking for order %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ListPendingShipments returns stale orders that still need carrier work: active orders
// whose booking is incomplete and cancelled orders whose booking is still live.
func (r *GORMOrderRepository) ListPendingShipments(ctx context.Context, before time.Time, maxAttempts, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("(status IN ? AND shipment_status IN ?) OR (status = ? AND shipment_id <> '' AND shipment_status <> ?)",
			models.FulfillableStatuses,
			[]models.ShipmentStatus{
				models.ShipmentUnprovisioned, models.ShipmentBooking, models.ShipmentBooked, models.ShipmentAWBAssigned,
			},
			models.StatusCancelled, models.ShipmentCancelled).
		Where("shipment_attempts < ? AND updated_at < ?", maxAttempts, before).
		Order("updated_at ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending shipments: %w", err)
	}
	return orders, nil
}

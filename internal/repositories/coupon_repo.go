package repositories

import (
	"context"

	"storefront/internal/models"
)

// CouponRepository defines data access for coupons.
type CouponRepository interface {
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	Create(ctx context.Context, coupon *models.Coupon) error
	// Redeem consumes one use of the coupon if it is still redeemable at write time.
	// It reports false when the guarded update matched no row.
	Redeem(ctx context.Context, id string) (bool, error)
}

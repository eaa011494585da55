package repositories

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCouponRepository is a GORM implementation of CouponRepository.
type GORMCouponRepository struct {
	db *gorm.DB
}

// NewGORMCouponRepository creates a new instance of GORMCouponRepository.
func NewGORMCouponRepository(db *gorm.DB) *GORMCouponRepository {
	return &GORMCouponRepository{db: db}
}

// redeemable narrows a coupon query to rows that can still absorb one more use.
func redeemable(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ? AND (usage_limit IS NULL OR used_count < usage_limit)", true)
}

// GetByCode retrieves a coupon by its normalised code.
func (r *GORMCouponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	code = models.NormalizeCouponCode(code)
	if err := r.db.WithContext(ctx).First(&coupon, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("coupon %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get coupon %s: %w", code, err)
	}
	return &coupon, nil
}

// Create stores a new coupon.
func (r *GORMCouponRepository) Create(ctx context.Context, coupon *models.Coupon) error {
	if coupon.ID == "" {
		coupon.ID = uuid.New().String()
	}
	coupon.Code = models.NormalizeCouponCode(coupon.Code)
	if err := r.db.WithContext(ctx).Create(coupon).Error; err != nil {
		return fmt.Errorf("failed to create coupon: %w", err)
	}
	return nil
}

// Redeem increments used_count with a single conditional UPDATE so concurrent checkouts
// can never push it past usage_limit.
func (r *GORMCouponRepository) Redeem(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Scopes(redeemable).
		Where("id = ?", id).
		UpdateColumn("used_count", gorm.Expr("used_count + ?", 1))
	if res.Error != nil {
		return false, fmt.Errorf("failed to redeem coupon %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RejectionReason explains why a coupon cannot be applied.
type RejectionReason string

const (
	ReasonInactive      RejectionReason = "inactive"
	ReasonOutOfWindow   RejectionReason = "out_of_window"
	ReasonExhausted     RejectionReason = "exhausted"
	ReasonMinimumNotMet RejectionReason = "minimum_not_met"
	// ReasonRaceLost means the coupon passed validation but its last use was taken by a
	// concurrent checkout before ours was written.
	ReasonRaceLost RejectionReason = "race_lost"
)

var (
	// ErrCouponRejected is matched by every *CouponRejectedError.
	ErrCouponRejected = errors.New("coupon rejected")
	ErrCouponNotFound = errors.New("coupon not found")
)

// CouponRejectedError carries the reason a coupon was refused.
type CouponRejectedError struct {
	Code   string
	Reason RejectionReason
}

func (e *CouponRejectedError) Error() string {
	return fmt.Sprintf("coupon %s rejected: %s", e.Code, e.Reason)
}

// Is lets errors.Is(err, ErrCouponRejected) match any rejection.
func (e *CouponRejectedError) Is(target error) bool {
	return target == ErrCouponRejected
}

func rejectCoupon(c models.Coupon, reason RejectionReason) error {
	return &CouponRejectedError{Code: c.Code, Reason: reason}
}

// RejectionReasonOf extracts the reason from a coupon rejection, if err is one.
func RejectionReasonOf(err error) (RejectionReason, bool) {
	var rejected *CouponRejectedError
	if errors.As(err, &rejected) {
		return rejected.Reason, true
	}
	return "", false
}

// ValidateCoupon checks c against orderAmount at time now. The checks short-circuit in
// order: active, window, remaining uses, minimum amount.
func ValidateCoupon(c models.Coupon, orderAmount decimal.Decimal, now time.Time) error {
	switch {
	case !c.IsActive:
		return rejectCoupon(c, ReasonInactive)
	case !c.IsWithinWindow(now):
		return rejectCoupon(c, ReasonOutOfWindow)
	case !c.HasRemainingUses():
		return rejectCoupon(c, ReasonExhausted)
	case !c.MeetsMinimum(orderAmount):
		return rejectCoupon(c, ReasonMinimumNotMet)
	}
	return nil
}

// CalculateDiscount returns the discount c grants on orderAmount, clamped to
// [0, min(orderAmount, MaxDiscount)] and rounded to cents.
func CalculateDiscount(c models.Coupon, orderAmount decimal.Decimal) decimal.Decimal {
	if !orderAmount.IsPositive() {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch c.DiscountType {
	case models.DiscountPercentage:
		discount = orderAmount.Mul(c.DiscountValue).Div(decimal.NewFromInt(100))
	case models.DiscountFixed:
		discount = c.DiscountValue
	default:
		return decimal.Zero
	}

	if c.MaxDiscount.Valid {
		discount = decimal.Min(discount, c.MaxDiscount.Decimal)
	}
	discount = decimal.Min(discount, orderAmount)
	discount = decimal.Max(discount, decimal.Zero)
	return discount.Round(2)
}

// CouponPreview is what a shopper sees before committing to a coupon.
type CouponPreview struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
}

// CouponService looks up, validates and redeems coupons.
type CouponService struct {
	coupons repositories.CouponRepository
	clock   func() time.Time
	logger  *zap.Logger
}

// NewCouponService creates a new CouponService.
func NewCouponService(coupons repositories.CouponRepository, clock func() time.Time, logger *zap.Logger) *CouponService {
	if clock == nil {
		clock = utcNow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CouponService{coupons: coupons, clock: clock, logger: logger.Named("coupons")}
}

// Lookup returns the coupon for a user-entered code.
func (s *CouponService) Lookup(ctx context.Context, code string) (*models.Coupon, error) {
	coupon, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCouponNotFound, models.NormalizeCouponCode(code))
		}
		return nil, err
	}
	return coupon, nil
}

// Preview validates code against orderAmount and reports the discount it would give,
// without consuming a use.
func (s *CouponService) Preview(ctx context.Context, code string, orderAmount decimal.Decimal) (*CouponPreview, error) {
	coupon, err := s.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := ValidateCoupon(*coupon, orderAmount, s.clock()); err != nil {
		return nil, err
	}
	return &CouponPreview{Code: coupon.Code, Discount: CalculateDiscount(*coupon, orderAmount)}, nil
}

// Redeem consumes one use of c. It fails with ReasonRaceLost when the guarded update
// finds the coupon no longer redeemable.
func (s *CouponService) Redeem(ctx context.Context, c models.Coupon) error {
	return redeemCoupon(ctx, s.coupons, c, s.logger)
}

func redeemCoupon(ctx context.Context, coupons repositories.CouponRepository, c models.Coupon, logger *zap.Logger) error {
	ok, err := coupons.Redeem(ctx, c.ID)
	if err != nil {
		return err
	}
	if !ok {
		logger.Info("coupon redemption lost race", zap.String("code", c.Code))
		return rejectCoupon(c, ReasonRaceLost)
	}
	return nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}

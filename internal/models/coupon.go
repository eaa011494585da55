package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType selects how a coupon's DiscountValue is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Coupon is a promotional code redeemable against an order.
// UsedCount only grows and never exceeds UsageLimit when a limit is set.
type Coupon struct {
	ID             string              `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Code           string              `json:"code" gorm:"uniqueIndex;type:varchar(64);not null"`
	DiscountType   DiscountType        `json:"discount_type" gorm:"type:varchar(16);not null"`
	DiscountValue  decimal.Decimal     `json:"discount_value" gorm:"type:decimal(12,2);not null"`
	MinOrderAmount decimal.NullDecimal `json:"min_order_amount" gorm:"type:decimal(12,2)"`
	MaxDiscount    decimal.NullDecimal `json:"max_discount" gorm:"type:decimal(12,2)"`
	UsageLimit     *int                `json:"usage_limit"`
	UsedCount      int                 `json:"used_count" gorm:"not null"`
	ValidFrom      *time.Time          `json:"valid_from"`
	ValidUntil     *time.Time          `json:"valid_until"`
	IsActive       bool                `json:"is_active" gorm:"not null"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// NormalizeCouponCode canonicalises user input so lookups are case-insensitive.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsWithinWindow reports whether now lies inside the validity window. ValidFrom is an
// instant; ValidUntil names a last day, so the coupon stays valid until the end of that
// calendar day in ValidUntil's location. A missing bound is unbounded on that side.
func (c Coupon) IsWithinWindow(now time.Time) bool {
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && !now.Before(endOfDay(*c.ValidUntil)) {
		return false
	}
	return true
}

// endOfDay returns the first instant of the day after t.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

// HasRemainingUses reports whether another redemption fits under UsageLimit.
func (c Coupon) HasRemainingUses() bool {
	return c.UsageLimit == nil || c.UsedCount < *c.UsageLimit
}

// MeetsMinimum reports whether amount satisfies MinOrderAmount.
func (c Coupon) MeetsMinimum(amount decimal.Decimal) bool {
	return !c.MinOrderAmount.Valid || amount.GreaterThanOrEqual(c.MinOrderAmount.Decimal)
}

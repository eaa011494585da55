package models_test

import (
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCoupon_IsWithinWindowInclusive(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)
	c := models.Coupon{ValidFrom: &from, ValidUntil: &until}

	assert.True(t, c.IsWithinWindow(from))
	assert.True(t, c.IsWithinWindow(until))
	assert.False(t, c.IsWithinWindow(from.Add(-time.Second)))
	assert.False(t, c.IsWithinWindow(until.Add(time.Second)))
	assert.True(t, models.Coupon{}.IsWithinWindow(time.Now()))
}

func TestCoupon_ValidOnItsLastDay(t *testing.T) {
	lastDay := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	c := models.Coupon{ValidUntil: &lastDay}

	assert.True(t, c.IsWithinWindow(lastDay.Add(15*time.Hour)))
	assert.True(t, c.IsWithinWindow(time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)))
	assert.False(t, c.IsWithinWindow(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))

	// The day boundary follows the location the bound was stored in.
	ist := time.FixedZone("IST", 5*3600+1800)
	local := time.Date(2026, 1, 31, 0, 0, 0, 0, ist)
	c.ValidUntil = &local
	assert.True(t, c.IsWithinWindow(time.Date(2026, 1, 31, 18, 0, 0, 0, time.UTC)), "23:30 IST")
	assert.False(t, c.IsWithinWindow(time.Date(2026, 1, 31, 18, 30, 0, 0, time.UTC)), "midnight IST")
}

func TestCoupon_HasRemainingUsesAndMinimum(t *testing.T) {
	limit := 2
	c := models.Coupon{UsageLimit: &limit, UsedCount: 1}
	assert.True(t, c.HasRemainingUses())
	c.UsedCount = 2
	assert.False(t, c.HasRemainingUses())
	assert.True(t, models.Coupon{UsedCount: 1000}.HasRemainingUses())

	c.MinOrderAmount = decimal.NewNullDecimal(decimal.NewFromInt(500))
	assert.True(t, c.MeetsMinimum(decimal.NewFromInt(500)))
	assert.False(t, c.MeetsMinimum(decimal.RequireFromString("499.99")))
	assert.Equal(t, "SAVE10", models.NormalizeCouponCode("  save10 "))
}

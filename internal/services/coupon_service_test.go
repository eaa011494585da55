package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nullD(s string) decimal.NullDecimal { return decimal.NewNullDecimal(d(s)) }

func TestValidateCoupon(t *testing.T) {
	base := models.Coupon{Code: "SAVE10", DiscountType: models.DiscountPercentage, DiscountValue: d("10"), IsActive: true}

	tests := []struct {
		name   string
		mutate func(c *models.Coupon)
		amount string
		reason services.RejectionReason
	}{
		{name: "valid", mutate: func(c *models.Coupon) {}, amount: "100"},
		{name: "inactive", mutate: func(c *models.Coupon) { c.IsActive = false }, amount: "100", reason: services.ReasonInactive},
		{name: "not started", mutate: func(c *models.Coupon) { c.ValidFrom = timePtr(testNow.Add(time.Hour)) }, amount: "100", reason: services.ReasonOutOfWindow},
		{name: "expired", mutate: func(c *models.Coupon) { c.ValidUntil = timePtr(testNow.AddDate(0, 0, -1)) }, amount: "100", reason: services.ReasonOutOfWindow},
		{name: "valid through its last day", mutate: func(c *models.Coupon) {
			c.ValidUntil = timePtr(testNow.Truncate(24 * time.Hour))
		}, amount: "100"},
		{name: "window bounds inclusive", mutate: func(c *models.Coupon) {
			c.ValidFrom = timePtr(testNow)
			c.ValidUntil = timePtr(testNow)
		}, amount: "100"},
		{name: "exhausted", mutate: func(c *models.Coupon) {
			c.UsageLimit = intPtr(3)
			c.UsedCount = 3
		}, amount: "100", reason: services.ReasonExhausted},
		{name: "below minimum", mutate: func(c *models.Coupon) { c.MinOrderAmount = nullD("500") }, amount: "499.99", reason: services.ReasonMinimumNotMet},
		{name: "at minimum", mutate: func(c *models.Coupon) { c.MinOrderAmount = nullD("500") }, amount: "500"},
		{name: "inactive checked before window", mutate: func(c *models.Coupon) {
			c.IsActive = false
			c.ValidUntil = timePtr(testNow.Add(-time.Hour))
		}, amount: "100", reason: services.ReasonInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := services.ValidateCoupon(c, d(tt.amount), testNow)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, services.ErrCouponRejected)
			reason, ok := services.RejectionReasonOf(err)
			assert.True(t, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestCalculateDiscount(t *testing.T) {
	tests := []struct {
		name   string
		coupon models.Coupon
		amount string
		want   string
	}{
		{
			name:   "percentage capped by max discount",
			coupon: models.Coupon{DiscountType: models.DiscountPercentage, DiscountValue: d("10"), MaxDiscount: nullD("50")},
			amount: "1000",
			want:   "50",
		},
		{
			name:   "percentage under cap",
			coupon: models.Coupon{DiscountType: models.DiscountPercentage, DiscountValue: d("10"), MaxDiscount: nullD("50")},
			amount: "300",
			want:   "30",
		},
		{
			name:   "fixed never exceeds order amount",
			coupon: models.Coupon{DiscountType: models.DiscountFixed, DiscountValue: d("200")},
			amount: "150",
			want:   "150",
		},
		{
			name:   "negative value clamps to zero",
			coupon: models.Coupon{DiscountType: models.DiscountFixed, DiscountValue: d("-20")},
			amount: "150",
			want:   "0",
		},
		{
			name:   "rounded to cents",
			coupon: models.Coupon{DiscountType: models.DiscountPercentage, DiscountValue: d("12.5")},
			amount: "99.99",
			want:   "12.5",
		},
		{
			name:   "zero amount",
			coupon: models.Coupon{DiscountType: models.DiscountFixed, DiscountValue: d("10")},
			amount: "0",
			want:   "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := services.CalculateDiscount(tt.coupon, d(tt.amount))
			assert.True(t, d(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestCalculateDiscount_StaysWithinBounds(t *testing.T) {
	amounts := []string{"0", "0.01", "1", "49.99", "100", "999.99", "1000", "25000"}
	values := []string{"0", "5", "10", "33.3", "100", "150", "5000"}
	limits := []decimal.NullDecimal{{}, nullD("0"), nullD("25"), nullD("50"), nullD("10000")}

	for _, kind := range []models.DiscountType{models.DiscountPercentage, models.DiscountFixed} {
		for _, v := range values {
			for _, limit := range limits {
				for _, a := range amounts {
					c := models.Coupon{DiscountType: kind, DiscountValue: d(v), MaxDiscount: limit}
					amount := d(a)
					got := services.CalculateDiscount(c, amount)

					upper := amount
					if limit.Valid {
						upper = decimal.Min(upper, limit.Decimal)
					}
					assert.False(t, got.IsNegative(), "%s %s limit=%v amount=%s", kind, v, limit, a)
					assert.True(t, got.LessThanOrEqual(upper), "%s %s limit=%v amount=%s got=%s", kind, v, limit, a, got)
				}
			}
		}
	}
}

func TestCouponService_Preview(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedCoupon(t, store, models.Coupon{
		Code: "welcome10", DiscountType: models.DiscountPercentage, DiscountValue: d("10"),
		MaxDiscount: nullD("50"), IsActive: true,
	})
	seedCoupon(t, store, models.Coupon{
		Code: "OLD", DiscountType: models.DiscountFixed, DiscountValue: d("20"),
		ValidUntil: timePtr(testNow.AddDate(0, 0, -1)), IsActive: true,
	})
	svc := services.NewCouponService(store.Coupons(), fixedClock, nil)

	preview, err := svc.Preview(ctx, "  Welcome10 ", d("1000"))
	require.NoError(t, err)
	assert.Equal(t, "WELCOME10", preview.Code)
	assert.True(t, d("50").Equal(preview.Discount))

	_, err = svc.Preview(ctx, "OLD", d("1000"))
	reason, ok := services.RejectionReasonOf(err)
	assert.True(t, ok)
	assert.Equal(t, services.ReasonOutOfWindow, reason)

	_, err = svc.Preview(ctx, "NOPE", d("1000"))
	assert.ErrorIs(t, err, services.ErrCouponNotFound)
}

func TestCouponService_ConcurrentRedemption(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	coupon := seedCoupon(t, store, models.Coupon{
		Code: "ONCE", DiscountType: models.DiscountFixed, DiscountValue: d("10"),
		UsageLimit: intPtr(1), IsActive: true,
	})
	svc := services.NewCouponService(store.Coupons(), fixedClock, nil)

	const callers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		redeemed int
		raceLost int
		other    []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.Redeem(ctx, *coupon)
			mu.Lock()
			defer mu.Unlock()
			switch reason, ok := services.RejectionReasonOf(err); {
			case err == nil:
				redeemed++
			case ok && reason == services.ReasonRaceLost:
				raceLost++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, 1, redeemed)
	assert.Equal(t, callers-1, raceLost)

	stored, err := store.Coupons().GetByCode(ctx, "ONCE")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsedCount)
}

func TestCouponService_RedeemInactive(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	coupon := seedCoupon(t, store, models.Coupon{
		Code: "OFF", DiscountType: models.DiscountFixed, DiscountValue: d("10"), IsActive: false,
	})
	svc := services.NewCouponService(store.Coupons(), fixedClock, nil)

	err := svc.Redeem(ctx, *coupon)
	assert.True(t, errors.Is(err, services.ErrCouponRejected))
}

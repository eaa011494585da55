package services

import (
	"storefront/internal/config"
	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// LineItem is a cart line with the catalog price captured at checkout.
type LineItem struct {
	ProductID string
	Name      string
	SKU       string
	UnitPrice decimal.Decimal
	Quantity  int
	WeightKg  decimal.Decimal
}

// LineTotal returns unit price times quantity, rounded to cents.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
}

// Totals is the monetary breakdown of an order. Every component is rounded to two
// decimals before Total is summed, so the identity
// Total == Subtotal - Discount + Shipping + Tax + CODFee holds exactly.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	CODFee   decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals prices a cart. coupon may be nil; it is assumed to have passed
// ValidateCoupon already.
func ComputeTotals(items []LineItem, coupon *models.Coupon, cfg config.PricingConfig, cod bool) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}

	discount := decimal.Zero
	if coupon != nil {
		discount = CalculateDiscount(*coupon, decimal.Max(decimal.Zero, subtotal))
	}

	shipping := cfg.ShippingFlatFee.Round(2)
	tax := subtotal.Sub(discount).Mul(cfg.TaxRate).Round(2)
	codFee := decimal.Zero
	if cod {
		codFee = cfg.CODFee.Round(2)
	}

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Tax:      tax,
		CODFee:   codFee,
		Total:    subtotal.Sub(discount).Add(shipping).Add(tax).Add(codFee),
	}
}

// TotalWeight sums item weights, falling back to half a kilo per unit when the catalog
// has no weight for a product.
func TotalWeight(items []LineItem) decimal.Decimal {
	fallback := decimal.RequireFromString("0.5")
	total := decimal.Zero
	for _, item := range items {
		w := item.WeightKg
		if !w.IsPositive() {
			w = fallback
		}
		total = total.Add(w.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

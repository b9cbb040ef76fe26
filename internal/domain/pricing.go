package domain

import "github.com/shopspring/decimal"

var (
	// FlatShippingRate is charged on every order regardless of weight or
	// destination.
	FlatShippingRate = decimal.New(999, -2)

	// TaxRate is applied to the cart subtotal, before shipping and discount.
	TaxRate = decimal.New(8, -2)
)

// PriceBreakdown is the itemized cost of an order.
type PriceBreakdown struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeBreakdown derives the full price breakdown from the cart and its
// coupon slot. Tax is recomputed from the subtotal on every call rather than
// carried over from a previous quote, so a cart mutation can never leave a
// stale tax figure behind. The total is clamped at zero: a discount larger
// than the order never produces a negative charge.
func ComputeBreakdown(cart *Cart, coupon CouponState) PriceBreakdown {
	subtotal := cart.TotalPrice
	tax := subtotal.Mul(TaxRate)
	discount := coupon.Discount()

	total := subtotal.Add(FlatShippingRate).Add(tax).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return PriceBreakdown{
		Subtotal: subtotal,
		Shipping: FlatShippingRate,
		Tax:      tax,
		Discount: discount,
		Total:    total,
	}
}

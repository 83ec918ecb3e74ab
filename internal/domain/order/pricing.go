package order

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero

	// centTolerance is the rounding slack allowed when comparing monetary
	// sums: two amounts within 0.01 of each other are considered equal.
	centTolerance = decimal.New(1, -2)
)

// linePrice holds the per-unit pricing of one order line.
type linePrice struct {
	// discounted is the unit price after the variant discount and the
	// order-wide promo discount, before tax.
	discounted decimal.Decimal
	// taxAmount is the tax charged per unit on the discounted price.
	taxAmount decimal.Decimal
	// taxed is discounted + taxAmount: what the customer pays per unit.
	taxed decimal.Decimal
}

// priceLine applies the variant discount, then the promo discount, then tax.
// All inputs are percentages except price. Full precision is kept; rounding
// happens only when totals are written back to the order.
func priceLine(price, variantDiscount, promoDiscount, tax decimal.Decimal) linePrice {
	discounted := price.
		Mul(hundred.Sub(variantDiscount)).Div(hundred).
		Mul(hundred.Sub(promoDiscount)).Div(hundred)
	taxAmount := discounted.Mul(tax).Div(hundred)

	return linePrice{
		discounted: discounted,
		taxAmount:  taxAmount,
		taxed:      discounted.Add(taxAmount),
	}
}

// withinTolerance reports whether a and b differ by at most one cent.
func withinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(centTolerance)
}

// refundableTotal computes the customer's refund entitlement from the
// append-only item ledger: the absolute value of the taxed worth of every
// returned (negative-quantity) row. DiscountedPrice already includes the
// order's promo discount, so no order context is needed here.
func refundableTotal(items []Item) decimal.Decimal {
	total := zero
	for _, it := range items {
		if it.Quantity >= 0 {
			continue
		}
		unit := it.DiscountedPrice.Add(it.DiscountedPrice.Mul(it.Tax).Div(hundred))
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(-it.Quantity))))
	}
	return total.Round(2)
}

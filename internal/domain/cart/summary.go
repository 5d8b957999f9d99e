package cart

import "github.com/shopspring/decimal"

// Pricing holds the storefront-wide charges applied on top of the subtotal.
type Pricing struct {
	// ShippingFlat is charged once for any non-empty cart.
	ShippingFlat decimal.Decimal
	// TaxRate is a fraction of the subtotal, e.g. 0.1 for 10%.
	TaxRate decimal.Decimal
}

// DefaultPricing returns a flat shipping fee of 50 and a 10% tax rate.
func DefaultPricing() Pricing {
	return Pricing{
		ShippingFlat: decimal.NewFromInt(50),
		TaxRate:      decimal.RequireFromString("0.1"),
	}
}

// Summary is the order summary shown next to a cart.
type Summary struct {
	Subtotal   decimal.Decimal
	Shipping   decimal.Decimal
	Tax        decimal.Decimal
	GrandTotal decimal.Decimal
	ItemCount  int
	LineCount  int
}

// Summarize computes the order summary for items. Tax is applied once to the
// subtotal; shipping is waived for an empty cart.
func Summarize(items []LineItem, p Pricing) Summary {
	subtotal := Total(items)

	shipping := decimal.Zero
	if len(items) > 0 {
		shipping = p.ShippingFlat
	}
	tax := subtotal.Mul(p.TaxRate).Round(2)

	return Summary{
		Subtotal:   subtotal.Round(2),
		Shipping:   shipping.Round(2),
		Tax:        tax,
		GrandTotal: subtotal.Add(shipping).Add(tax).Round(2),
		ItemCount:  ItemCount(items),
		LineCount:  len(items),
	}
}

package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/rowanmckenna/marketstead-backend/pkg/config"
)

// Line is one priced cart or order row.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Quote carries the derived money amounts for a set of lines. All fields are
// rounded to two decimal places, half up.
type Quote struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// Calculate derives subtotal, tax, shipping and total for the given lines.
//
// The math runs on exact decimals; rounding happens once per output amount.
// Shipping is waived only when the subtotal is strictly above the free
// shipping threshold. An empty line set quotes all zeros, shipping included.
func Calculate(lines []Line, cfg config.PricingConfig) Quote {
	subtotal := decimal.Zero
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	if subtotal.IsZero() {
		return Quote{
			Subtotal: decimal.Zero.Round(2),
			Tax:      decimal.Zero.Round(2),
			Shipping: decimal.Zero.Round(2),
			Total:    decimal.Zero.Round(2),
		}
	}

	tax := subtotal.Mul(cfg.TaxRate)

	shipping := cfg.FlatShippingFee
	if subtotal.GreaterThan(cfg.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	total := subtotal.Add(tax).Add(shipping)

	return Quote{
		Subtotal: subtotal.Round(2),
		Tax:      tax.Round(2),
		Shipping: shipping.Round(2),
		Total:    total.Round(2),
	}
}

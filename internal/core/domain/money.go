package domain

import "github.com/shopspring/decimal"

// Currency is the single currency this storefront charges in. The rupiah has
// no fractional unit, so one minor unit is one rupiah.
const Currency = "IDR"

// LineItem is a priced order line from the cart.
type LineItem struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
}

// OrderTotal sums line-item subtotals without rounding intermediate values.
func OrderTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)))
	}
	return total
}

// MinorUnits converts an amount to the smallest currency unit using
// round-half-to-even. The gateway charges exactly this value, so any other
// rounding here would make computed and charged totals disagree.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.RoundBank(0).IntPart()
}

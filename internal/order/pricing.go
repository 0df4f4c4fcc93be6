package order

import (
	"ridefuture-be/internal/product"

	"github.com/shopspring/decimal"
)

// PricedLine is one order item joined with its product's current pricing.
type PricedLine struct {
	Price              decimal.Decimal
	DiscountPercentage decimal.Decimal
	Quantity           int
	Guarantee          bool
}

// CalculateTotal sums discounted line prices plus the guarantee fee for every
// guaranteed unit.
func CalculateTotal(lines []PricedLine, guaranteeFee decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		qty := decimal.NewFromInt(int64(l.Quantity))
		total = total.Add(product.DiscountedPrice(l.Price, l.DiscountPercentage).Mul(qty))
		if l.Guarantee {
			total = total.Add(guaranteeFee.Mul(qty))
		}
	}
	return total.Round(2)
}

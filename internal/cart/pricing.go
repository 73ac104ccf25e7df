package cart

import (
	"math"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// EffectiveUnitPrice resolves the price of one unit of the line in the smallest
// currency unit. Variant prices are final; otherwise the percentage discount is
// applied to the product snapshot, then to the line's cached fields. Never negative.
func EffectiveUnitPrice(line Line) int64 {
	if line.Variant != nil && line.Variant.Price != nil {
		return nonNegative(*line.Variant.Price)
	}
	if full, ok := line.Product.(FullProduct); ok {
		return applyDiscountPercent(full.BasePrice, full.DiscountPercent)
	}
	return applyDiscountPercent(line.Cached.Price, line.Cached.DiscountPercent)
}

// LineSubtotal is the unit price times the quantity.
func LineSubtotal(line Line) int64 {
	qty := line.Quantity
	if qty < 0 {
		qty = 0
	}
	return EffectiveUnitPrice(line) * int64(qty)
}

// OriginalUnitPrice is the undiscounted unit price used for strike-through display.
func OriginalUnitPrice(line Line) int64 {
	if line.Variant != nil && line.Variant.Price != nil {
		return nonNegative(*line.Variant.Price)
	}
	if full, ok := line.Product.(FullProduct); ok {
		return nonNegative(full.BasePrice)
	}
	return nonNegative(line.Cached.Price)
}

// applyDiscountPercent rounds once, half away from zero.
func applyDiscountPercent(base int64, percent float64) int64 {
	if base <= 0 {
		return 0
	}
	if math.IsNaN(percent) || math.IsInf(percent, 0) {
		return base
	}
	pct := decimal.NewFromFloat(percent)
	if !pct.IsPositive() {
		return base
	}
	if pct.GreaterThanOrEqual(hundred) {
		return 0
	}
	price := decimal.NewFromInt(base).
		Mul(hundred.Sub(pct)).
		Div(hundred).
		Round(0)
	return nonNegative(price.IntPart())
}

func nonNegative(value int64) int64 {
	if value < 0 {
		return 0
	}
	return value
}

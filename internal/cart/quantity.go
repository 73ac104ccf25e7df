package cart

import (
	"fmt"

	"github.com/angelmondragon/storefront-core/pkg/enums"
)

// ClampQuantity fits requested into [1, line.MaxQuantity(fallbackMax)] and reports
// every adjustment as a warning.
func ClampQuantity(requested int, line Line, fallbackMax int) (int, Warnings) {
	normalized := requested
	warnings := Warnings{}

	if normalized < 1 {
		warnings = appendWarning(warnings, enums.CartLineWarningTypeClampedToMin, line.ID, "quantity raised to minimum (1)")
		normalized = 1
	}

	maxQty := line.MaxQuantity(fallbackMax)
	if normalized > maxQty {
		warnings = appendWarning(warnings, enums.CartLineWarningTypeClampedToStock, line.ID, fmt.Sprintf("quantity reduced to available stock (%d)", maxQty))
		normalized = maxQty
	}

	return normalized, warnings
}

// BelowMinimum reports whether requested is refused outright, with the warning
// explaining why. No lookup is needed, so callers can answer without loading the cart.
func BelowMinimum(id LineID, requested int) (Warnings, bool) {
	if requested >= 1 {
		return nil, false
	}
	return appendWarning(Warnings{}, enums.CartLineWarningTypeClampedToMin, id, "quantity must be at least 1"), true
}

package cart

// Totals is the aggregate over the selected lines of a cart. A zero SelectedCount
// means nothing is selected and callers must render the empty-selection state
// instead of the amounts.
type Totals struct {
	SelectedCount int   `json:"selected_count"`
	Quantity      int   `json:"quantity"`
	Subtotal      int64 `json:"subtotal"`
	Discount      int64 `json:"discount"`
	Shipping      int64 `json:"shipping"`
	Tax           int64 `json:"tax"`
	Total         int64 `json:"total"`
}

// HasSelection reports whether at least one line contributed to the totals.
func (t Totals) HasSelection() bool {
	return t.SelectedCount > 0
}

// ComputeTotals folds the selected lines into subtotal, discount, shipping, tax and
// total. The discount is clamped to [0, subtotal] so the total never goes negative.
func ComputeTotals(lines Lines, shipping, discount, tax int64) Totals {
	var totals Totals
	for _, line := range lines {
		if !line.Selected {
			continue
		}
		totals.SelectedCount++
		totals.Quantity += line.Quantity
		totals.Subtotal += LineSubtotal(line)
	}
	if totals.SelectedCount == 0 {
		return Totals{}
	}

	totals.Discount = clampDiscount(discount, totals.Subtotal)
	totals.Shipping = nonNegative(shipping)
	totals.Tax = nonNegative(tax)
	totals.Total = (totals.Subtotal - totals.Discount) + totals.Shipping + totals.Tax
	return totals
}

func clampDiscount(discount, subtotal int64) int64 {
	if discount < 0 {
		return 0
	}
	if discount > subtotal {
		return subtotal
	}
	return discount
}

package controllers

import (
	"time"

	"github.com/angelmondragon/storefront-core/internal/cart"
	"github.com/angelmondragon/storefront-core/internal/vouchers"
	"github.com/angelmondragon/storefront-core/pkg/money"
)

type amountResponse struct {
	Amount    int64  `json:"amount"`
	Formatted string `json:"formatted"`
}

func newAmount(value int64) amountResponse {
	return amountResponse{Amount: value, Formatted: money.Format(value)}
}

type cartLineResponse struct {
	ID            cart.LineID    `json:"id"`
	StoreID       int64          `json:"store_id"`
	ProductID     int64          `json:"product_id"`
	ProductName   string         `json:"product_name"`
	VariantID     *int64         `json:"variant_id,omitempty"`
	ImageURL      string         `json:"image_url,omitempty"`
	Available     bool           `json:"available"`
	Quantity      int            `json:"quantity"`
	MaxQuantity   int            `json:"max_quantity"`
	Selected      bool           `json:"selected"`
	UnitPrice     amountResponse `json:"unit_price"`
	OriginalPrice amountResponse `json:"original_price"`
	Subtotal      amountResponse `json:"subtotal"`
}

func newCartLineResponse(line cart.Line, maxQuantity int) cartLineResponse {
	resp := cartLineResponse{
		ID:            line.ID,
		StoreID:       line.StoreID,
		ProductID:     line.ProductID(),
		ProductName:   line.ProductName(),
		Available:     line.Available(),
		Quantity:      line.Quantity,
		MaxQuantity:   line.MaxQuantity(maxQuantity),
		Selected:      line.Selected,
		UnitPrice:     newAmount(cart.EffectiveUnitPrice(line)),
		OriginalPrice: newAmount(cart.OriginalUnitPrice(line)),
		Subtotal:      newAmount(cart.LineSubtotal(line)),
	}
	if line.Variant != nil {
		id := line.Variant.ID
		resp.VariantID = &id
	}
	if full, ok := line.Product.(cart.FullProduct); ok {
		resp.ImageURL = full.ImageURL
	}
	return resp
}

type storeGroupResponse struct {
	StoreID   int64              `json:"store_id"`
	StoreName string             `json:"store_name"`
	Lines     []cartLineResponse `json:"lines"`
}

func newStoreGroupResponses(groups []cart.StoreGroup, maxQuantity int) []storeGroupResponse {
	out := make([]storeGroupResponse, 0, len(groups))
	for _, group := range groups {
		lines := make([]cartLineResponse, 0, len(group.Lines))
		for _, line := range group.Lines {
			lines = append(lines, newCartLineResponse(line, maxQuantity))
		}
		out = append(out, storeGroupResponse{
			StoreID:   group.StoreID,
			StoreName: group.StoreName,
			Lines:     lines,
		})
	}
	return out
}

type totalsResponse struct {
	SelectedCount int            `json:"selected_count"`
	Quantity      int            `json:"quantity"`
	AllSelected   bool           `json:"all_selected"`
	CanCheckout   bool           `json:"can_checkout"`
	Subtotal      amountResponse `json:"subtotal"`
	Discount      amountResponse `json:"discount"`
	Shipping      amountResponse `json:"shipping"`
	Tax           amountResponse `json:"tax"`
	Total         amountResponse `json:"total"`
}

func newTotalsResponse(totals cart.Totals, allSelected bool) totalsResponse {
	return totalsResponse{
		SelectedCount: totals.SelectedCount,
		Quantity:      totals.Quantity,
		AllSelected:   allSelected,
		CanCheckout:   totals.HasSelection(),
		Subtotal:      newAmount(totals.Subtotal),
		Discount:      newAmount(totals.Discount),
		Shipping:      newAmount(totals.Shipping),
		Tax:           newAmount(totals.Tax),
		Total:         newAmount(totals.Total),
	}
}

type cartResponse struct {
	Count    int                  `json:"count"`
	Groups   []storeGroupResponse `json:"groups"`
	Totals   totalsResponse       `json:"totals"`
	Coupon   string               `json:"coupon,omitempty"`
	Warnings cart.Warnings        `json:"warnings,omitempty"`
	Refetch  bool                 `json:"refetched,omitempty"`
}

func newCartResponse(lines cart.Lines, discount int64, maxQuantity int) cartResponse {
	return cartResponse{
		Count:  len(lines),
		Groups: newStoreGroupResponses(cart.GroupByStore(lines), maxQuantity),
		Totals: newTotalsResponse(cart.ComputeTotals(lines, 0, discount, 0), cart.AllSelected(lines)),
	}
}

func newMutationResponse(result cart.MutationResult, maxQuantity int) cartResponse {
	resp := newCartResponse(result.Lines, 0, maxQuantity)
	resp.Warnings = result.Warnings
	resp.Refetch = result.Refetched
	return resp
}

type storeTotalsResponse struct {
	StoreID       int64          `json:"store_id"`
	StoreName     string         `json:"store_name"`
	SelectedCount int            `json:"selected_count"`
	Quantity      int            `json:"quantity"`
	Subtotal      amountResponse `json:"subtotal"`
}

func newStoreTotalsResponses(totals []cart.StoreTotals) []storeTotalsResponse {
	out := make([]storeTotalsResponse, 0, len(totals))
	for _, t := range totals {
		out = append(out, storeTotalsResponse{
			StoreID:       t.StoreID,
			StoreName:     t.StoreName,
			SelectedCount: t.SelectedCount,
			Quantity:      t.Quantity,
			Subtotal:      newAmount(t.Subtotal),
		})
	}
	return out
}

type voucherResponse struct {
	ID                 int64          `json:"id"`
	Code               string         `json:"code"`
	Title              string         `json:"title"`
	Discount           string         `json:"discount"`
	Amount             amountResponse `json:"amount"`
	MinimumSpend       amountResponse `json:"minimum_spend"`
	ExpiresAt          *time.Time     `json:"expires_at,omitempty"`
	Scope              string         `json:"scope"`
	StoreID            int64          `json:"store_id,omitempty"`
	StoreName          string         `json:"store_name,omitempty"`
	Claimed            bool           `json:"claimed"`
	UsableWithoutClaim bool           `json:"usable_without_claim"`
	Eligible           bool           `json:"eligible"`
	Reason             string         `json:"reason,omitempty"`
}

func newVoucherResponses(listings []vouchers.Listing) []voucherResponse {
	out := make([]voucherResponse, 0, len(listings))
	for _, l := range listings {
		v := l.Voucher
		out = append(out, voucherResponse{
			ID:                 v.ID,
			Code:               v.Code,
			Title:              v.Title,
			Discount:           v.Discount,
			Amount:             newAmount(v.Amount),
			MinimumSpend:       newAmount(v.MinimumSpend),
			ExpiresAt:          v.ExpiresAt,
			Scope:              v.Scope.String(),
			StoreID:            v.StoreID,
			StoreName:          v.StoreName,
			Claimed:            v.Claimed,
			UsableWithoutClaim: v.UsableWithoutClaim,
			Eligible:           l.Eligible,
			Reason:             l.Reason,
		})
	}
	return out
}

type slotResponse struct {
	vouchers.SlotStatus
	FormattedDiscount string `json:"formatted_discount"`
}

func newSlotResponses(statuses []vouchers.SlotStatus) []slotResponse {
	out := make([]slotResponse, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, slotResponse{SlotStatus: status, FormattedDiscount: money.Format(status.Discount)})
	}
	return out
}

// newSlotResponse reports a slot right after a mutation, when an applied voucher has
// just passed the eligibility check.
func newSlotResponse(slot vouchers.Slot) slotResponse {
	return slotResponse{
		SlotStatus:        vouchers.SlotStatus{Slot: slot, Eligible: slot.Applied()},
		FormattedDiscount: money.Format(slot.Discount),
	}
}

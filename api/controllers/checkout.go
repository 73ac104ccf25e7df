package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-core/api/responses"
	"github.com/angelmondragon/storefront-core/api/validators"
	"github.com/angelmondragon/storefront-core/internal/cart"
	"github.com/angelmondragon/storefront-core/internal/vouchers"
	"github.com/angelmondragon/storefront-core/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
	"github.com/angelmondragon/storefront-core/pkg/logger"
)

const maxChargeAmount int64 = 1_000_000_000_000

type checkoutSummaryResponse struct {
	Groups      []storeGroupResponse  `json:"groups"`
	StoreTotals []storeTotalsResponse `json:"store_totals"`
	Vouchers    []slotResponse        `json:"vouchers"`
	Totals      totalsResponse        `json:"totals"`
}

// CheckoutSummary reviews the selected lines grouped by store, with voucher slot
// discounts and the caller-provided shipping and tax folded into the totals. Applied
// vouchers are re-checked against the current selection; one that no longer fits is
// flagged and not deducted.
func CheckoutSummary(cartSvc cart.Service, voucherSvc vouchers.Service, cfg config.CartConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if voucherSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "voucher service unavailable"))
			return
		}

		shipping, err := validators.ParseQueryInt64(r, "shipping", 0, 0, maxChargeAmount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tax, err := validators.ParseQueryInt64(r, "tax", 0, 0, maxChargeAmount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, ok := openCart(w, r, cartSvc, logg)
		if !ok {
			return
		}

		lines := store.Lines()
		if len(lines.Selected()) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeIneligible, "select at least one item to check out"))
			return
		}

		slots, err := voucherSvc.Review(r.Context(), store.CustomerID(), lines)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		groups := cart.GroupSelectedByStore(lines)
		totals := cart.ComputeTotals(lines, shipping, vouchers.EligibleDiscount(slots), tax)

		responses.WriteSuccess(w, checkoutSummaryResponse{
			Groups:      newStoreGroupResponses(groups, cfg.MaxQuantity),
			StoreTotals: newStoreTotalsResponses(cart.ComputeStoreTotals(groups)),
			Vouchers:    newSlotResponses(slots),
			Totals:      newTotalsResponse(totals, cart.AllSelected(lines)),
		})
	}
}

package controllers

import (
	"context"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-core/api/middleware"
	"github.com/angelmondragon/storefront-core/api/responses"
	"github.com/angelmondragon/storefront-core/api/validators"
	"github.com/angelmondragon/storefront-core/internal/cart"
	"github.com/angelmondragon/storefront-core/internal/vouchers"
	"github.com/angelmondragon/storefront-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
	"github.com/angelmondragon/storefront-core/pkg/logger"
)

const maxVoucherCodeLength = 64

// VoucherList lists vouchers of one scope, each flagged with whether it can apply
// to the current selection.
func VoucherList(cartSvc cart.Service, voucherSvc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if voucherSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "voucher service unavailable"))
			return
		}

		rawScope := strings.TrimSpace(r.URL.Query().Get("scope"))
		if rawScope == "" {
			rawScope = enums.VoucherScopePlatform.String()
		}
		scope, err := enums.ParseVoucherScope(rawScope)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid voucher scope").
				WithDetails(map[string]any{"scope": rawScope}))
			return
		}
		storeID, err := validators.ParseQueryInt64(r, "store_id", 0, 0, math.MaxInt64)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, ok := openCart(w, r, cartSvc, logg)
		if !ok {
			return
		}

		listings, err := voucherSvc.List(r.Context(), scope, storeID, store.Lines())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newVoucherResponses(listings))
	}
}

// VoucherClaim attaches a voucher to the customer's account. Claiming a voucher
// that is already claimed succeeds.
func VoucherClaim(voucherSvc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if voucherSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "voucher service unavailable"))
			return
		}
		voucherID, err := validators.ParsePathID(r, "voucherId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := voucherSvc.Claim(r.Context(), voucherID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type applyVoucherRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

// VoucherApply enters a code into a checkout voucher slot and applies it when the
// voucher is eligible for the selected lines. The code is looked up through the
// voucher listing; an ineligible voucher is rejected without calling the backend's
// apply endpoint.
func VoucherApply(cartSvc cart.Service, voucherSvc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if voucherSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "voucher service unavailable"))
			return
		}
		slotName, err := parseSlot(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload applyVoucherRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		code := validators.NormalizeCode(payload.Code, maxVoucherCodeLength)

		store, ok := openCart(w, r, cartSvc, logg)
		if !ok {
			return
		}

		ctx := withSlot(r, logg, slotName)
		slot, err := voucherSvc.Apply(ctx, store.CustomerID(), slotName, code, store.Lines())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSlotResponse(slot))
	}
}

// VoucherRemove empties a checkout voucher slot.
func VoucherRemove(voucherSvc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if voucherSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "voucher service unavailable"))
			return
		}
		slotName, err := parseSlot(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customerID := middleware.CustomerIDFromContext(r.Context())
		if customerID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer context missing"))
			return
		}

		ctx := withSlot(r, logg, slotName)
		slot, err := voucherSvc.Remove(ctx, customerID, slotName)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSlotResponse(slot))
	}
}

func withSlot(r *http.Request, logg *logger.Logger, slot enums.VoucherSlot) context.Context {
	if logg == nil {
		return r.Context()
	}
	return logg.WithVoucherSlot(r.Context(), string(slot))
}

func parseSlot(r *http.Request) (enums.VoucherSlot, error) {
	raw := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "slot")))
	slot, err := enums.ParseVoucherSlot(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid voucher slot").
			WithDetails(map[string]any{"slot": raw})
	}
	return slot, nil
}

package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-core/api/middleware"
	"github.com/angelmondragon/storefront-core/api/responses"
	"github.com/angelmondragon/storefront-core/api/validators"
	"github.com/angelmondragon/storefront-core/internal/cart"
	"github.com/angelmondragon/storefront-core/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
	"github.com/angelmondragon/storefront-core/pkg/logger"
)

const maxCouponLength = 64

// CountReader serves the cached cart badge count.
type CountReader interface {
	Count(ctx context.Context, customerID string) (int, bool, error)
}

// CartFetch returns the customer's cart grouped by store with selection totals.
// The optional coupon query applies a configured flat discount to the preview.
func CartFetch(svc cart.Service, cfg config.CartConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := openCart(w, r, svc, logg)
		if !ok {
			return
		}

		coupon := validators.NormalizeCode(r.URL.Query().Get("coupon"), maxCouponLength)
		var discount int64
		if coupon != "" {
			amount, found := cfg.FlatCoupon(coupon)
			if !found {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown coupon code").
					WithDetails(map[string]any{"coupon": coupon}))
				return
			}
			discount = amount
		}

		resp := newCartResponse(store.Lines(), discount, cfg.MaxQuantity)
		if discount > 0 {
			resp.Coupon = coupon
		}
		responses.WriteSuccess(w, resp)
	}
}

// CartCount returns the number of lines in the cart, from the badge cache when warm.
func CartCount(svc cart.Service, counts CountReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := middleware.CustomerIDFromContext(r.Context())
		if customerID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer context missing"))
			return
		}

		if counts != nil {
			count, found, err := counts.Count(r.Context(), customerID)
			if err == nil && found {
				responses.WriteSuccess(w, map[string]int{"count": count})
				return
			}
			if err != nil && logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "cart_count.cache_read_failed")
			}
		}

		store, ok := openCart(w, r, svc, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, map[string]int{"count": store.Count()})
	}
}

// CartToggleLine flips the selection of one line.
func CartToggleLine(svc cart.Service, cfg config.CartConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID, err := validators.ParsePathID(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store, ok := openCart(w, r, svc, logg)
		if !ok {
			return
		}
		result, err := store.ToggleOne(withLine(r, logg, lineID), cart.LineID(lineID))
		writeMutation(w, r, logg, result, err, cfg.MaxQuantity)
	}
}

// CartToggleAll selects every line, or deselects every line when all are selected.
func CartToggleAll(svc cart.Service, cfg config.CartConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := openCart(w, r, svc, logg)
		if !ok {
			return
		}
		result, err := store.ToggleAll(r.Context())
		writeMutation(w, r, logg, result, err, cfg.MaxQuantity)
	}
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type quantityRefusedResponse struct {
	LineID   int64         `json:"line_id"`
	Changed  bool          `json:"changed"`
	Warnings cart.Warnings `json:"warnings"`
}

// CartSetQuantity changes the quantity of one line, clamped to its stock. Quantities
// below one are refused locally with a warning and never reach the backend.
func CartSetQuantity(svc cart.Service, cfg config.CartConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID, err := validators.ParsePathID(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requested := *payload.Quantity
		if warnings, refused := cart.BelowMinimum(cart.LineID(lineID), requested); refused {
			responses.WriteSuccess(w, quantityRefusedResponse{LineID: lineID, Warnings: warnings})
			return
		}

		store, ok := openCart(w, r, svc, logg)
		if !ok {
			return
		}
		result, err := store.SetQuantity(withLine(r, logg, lineID), cart.LineID(lineID), requested)
		writeMutation(w, r, logg, result, err, cfg.MaxQuantity)
	}
}

// CartRemoveLine deletes one line.
func CartRemoveLine(svc cart.Service, cfg config.CartConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID, err := validators.ParsePathID(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store, ok := openCart(w, r, svc, logg)
		if !ok {
			return
		}
		result, err := store.Remove(withLine(r, logg, lineID), cart.LineID(lineID))
		writeMutation(w, r, logg, result, err, cfg.MaxQuantity)
	}
}

// CartClear deletes every line.
func CartClear(svc cart.Service, cfg config.CartConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := openCart(w, r, svc, logg)
		if !ok {
			return
		}
		result, err := store.Clear(r.Context())
		writeMutation(w, r, logg, result, err, cfg.MaxQuantity)
	}
}

func openCart(w http.ResponseWriter, r *http.Request, svc cart.Service, logg *logger.Logger) (*cart.Store, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
		return nil, false
	}
	customerID := middleware.CustomerIDFromContext(r.Context())
	if customerID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer context missing"))
		return nil, false
	}
	store, err := svc.Open(r.Context(), customerID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}
	return store, true
}

func withLine(r *http.Request, logg *logger.Logger, lineID int64) context.Context {
	if logg == nil {
		return r.Context()
	}
	return logg.WithLineID(r.Context(), lineID)
}

func writeMutation(w http.ResponseWriter, r *http.Request, logg *logger.Logger, result cart.MutationResult, err error, maxQuantity int) {
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, newMutationResponse(result, maxQuantity))
}

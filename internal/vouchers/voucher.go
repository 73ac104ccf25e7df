package vouchers

import (
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
)

// Voucher is a discount code that is either restricted to one store or usable
// marketplace-wide. MinimumSpend of zero means no minimum; StoreID is zero when the
// voucher is not bound to a particular store.
type Voucher struct {
	ID                 int64
	Code               string
	Title              string
	Discount           string
	Amount             int64
	MinimumSpend       int64
	ExpiresAt          *time.Time
	Scope              enums.VoucherScope
	StoreID            int64
	StoreName          string
	Claimed            bool
	UsableWithoutClaim bool
}

// Expired reports whether the voucher's validity ended before now.
func (v Voucher) Expired(now time.Time) bool {
	return v.ExpiresAt != nil && v.ExpiresAt.Before(now)
}

// Usable reports whether the voucher can be applied without claiming it first.
func (v Voucher) Usable() bool {
	return v.Claimed || v.UsableWithoutClaim
}

func (v Voucher) storeLabel() string {
	if v.StoreName != "" {
		return v.StoreName
	}
	return fmt.Sprintf("store %d", v.StoreID)
}

// CanApply reports whether v may be applied to a selection spanning selectedStoreIDs.
func CanApply(v Voucher, selectedStoreIDs []int64, now time.Time) bool {
	return Check(v, selectedStoreIDs, now) == nil
}

// Check is CanApply with a reason. Expired vouchers are never eligible. A store voucher
// is blocked only when the selection includes lines from a different store.
func Check(v Voucher, selectedStoreIDs []int64, now time.Time) error {
	if v.Expired(now) {
		return pkgerrors.New(pkgerrors.CodeIneligible, "voucher has expired").
			WithDetails(map[string]any{"voucher_id": v.ID, "expires_at": v.ExpiresAt.UTC().Format(time.RFC3339)})
	}
	if v.Scope != enums.VoucherScopeStore {
		return nil
	}
	if len(selectedStoreIDs) == 0 || v.StoreID == 0 {
		return nil
	}
	for _, id := range selectedStoreIDs {
		if id != v.StoreID {
			return pkgerrors.New(pkgerrors.CodeIneligible, fmt.Sprintf("voucher only applies to items from %s", v.storeLabel())).
				WithDetails(map[string]any{
					"voucher_id":          v.ID,
					"required_store_id":   v.StoreID,
					"required_store_name": v.storeLabel(),
				})
		}
	}
	return nil
}

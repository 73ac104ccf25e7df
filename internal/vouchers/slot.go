package vouchers

import (
	"strings"
	"time"

	"github.com/angelmondragon/storefront-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
)

// Slot is one voucher input on the checkout page. The store and platform slots are
// independent; each holds at most one applied voucher.
type Slot struct {
	Name      enums.VoucherSlot      `json:"name"`
	State     enums.VoucherSlotState `json:"state"`
	Code      string                 `json:"code,omitempty"`
	VoucherID int64                  `json:"voucher_id,omitempty"`
	StoreID   int64                  `json:"store_id,omitempty"`
	StoreName string                 `json:"store_name,omitempty"`
	Discount  int64                  `json:"discount,omitempty"`
	ExpiresAt *time.Time             `json:"expires_at,omitempty"`
	AppliedAt *time.Time             `json:"applied_at,omitempty"`
}

// NewSlot returns an empty slot.
func NewSlot(name enums.VoucherSlot) Slot {
	return Slot{Name: name, State: enums.VoucherSlotStateEmpty}
}

// Applied reports whether a voucher is active in the slot.
func (s Slot) Applied() bool {
	return s.State == enums.VoucherSlotStateApplied
}

// EnterCode records a typed code. Entering a code while a voucher is applied is
// rejected; an empty code clears the pending input.
func (s *Slot) EnterCode(code string) error {
	if s.Applied() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "remove the applied voucher before entering a new code").
			WithDetails(map[string]any{"slot": s.Name, "applied_code": s.Code})
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		s.reset()
		return nil
	}
	s.State = enums.VoucherSlotStateCodeEntered
	s.Code = trimmed
	return nil
}

// MarkApplied moves a slot holding an entered code to applied.
func (s *Slot) MarkApplied(v Voucher, discount int64, now time.Time) error {
	if s.State != enums.VoucherSlotStateCodeEntered {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no voucher code entered").
			WithDetails(map[string]any{"slot": s.Name, "state": s.State})
	}
	if discount < 0 {
		discount = 0
	}
	applied := now.UTC()
	s.State = enums.VoucherSlotStateApplied
	s.Code = v.Code
	s.VoucherID = v.ID
	s.StoreID = v.StoreID
	s.StoreName = v.StoreName
	s.Discount = discount
	s.ExpiresAt = v.ExpiresAt
	s.AppliedAt = &applied
	return nil
}

// voucher rebuilds the eligibility-relevant part of the applied voucher.
func (s Slot) voucher() Voucher {
	return Voucher{
		ID:        s.VoucherID,
		Code:      s.Code,
		Scope:     s.Name.Scope(),
		StoreID:   s.StoreID,
		StoreName: s.StoreName,
		ExpiresAt: s.ExpiresAt,
	}
}

// SlotStatus is a slot re-checked against the current selection.
type SlotStatus struct {
	Slot
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// EvaluateSlots re-runs the eligibility check for every applied slot. The selection
// may have changed since the voucher was applied; an applied voucher that no longer
// fits is reported ineligible and contributes nothing to EligibleDiscount.
func EvaluateSlots(slots []Slot, selectedStoreIDs []int64, now time.Time) []SlotStatus {
	out := make([]SlotStatus, 0, len(slots))
	for _, slot := range slots {
		status := SlotStatus{Slot: slot}
		if slot.Applied() {
			status.Eligible = true
			if err := Check(slot.voucher(), selectedStoreIDs, now); err != nil {
				status.Eligible = false
				status.Reason = pkgerrors.As(err).Message()
			}
		}
		out = append(out, status)
	}
	return out
}

// EligibleDiscount sums the discounts of applied slots that still fit the selection.
func EligibleDiscount(statuses []SlotStatus) int64 {
	var total int64
	for _, status := range statuses {
		if status.Applied() && status.Eligible {
			total += status.Discount
		}
	}
	return total
}

// Remove empties the slot.
func (s *Slot) Remove() {
	s.reset()
}

func (s *Slot) reset() {
	*s = NewSlot(s.Name)
}

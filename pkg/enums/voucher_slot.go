package enums

import "fmt"

// VoucherSlot names one of the independent voucher inputs on the checkout page.
type VoucherSlot string

const (
	VoucherSlotStore    VoucherSlot = "store"
	VoucherSlotPlatform VoucherSlot = "platform"
)

var validVoucherSlots = []VoucherSlot{
	VoucherSlotStore,
	VoucherSlotPlatform,
}

// String implements fmt.Stringer.
func (v VoucherSlot) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VoucherSlot.
func (v VoucherSlot) IsValid() bool {
	for _, candidate := range validVoucherSlots {
		if candidate == v {
			return true
		}
	}
	return false
}

// Scope returns the voucher scope accepted by the slot.
func (v VoucherSlot) Scope() VoucherScope {
	if v == VoucherSlotStore {
		return VoucherScopeStore
	}
	return VoucherScopePlatform
}

// ParseVoucherSlot converts raw input into a VoucherSlot.
func ParseVoucherSlot(value string) (VoucherSlot, error) {
	for _, candidate := range validVoucherSlots {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid voucher slot %q", value)
}

// VoucherSlotState tracks the lifecycle of a single voucher slot.
type VoucherSlotState string

const (
	VoucherSlotStateEmpty       VoucherSlotState = "empty"
	VoucherSlotStateCodeEntered VoucherSlotState = "code_entered"
	VoucherSlotStateApplied     VoucherSlotState = "applied"
)

var validVoucherSlotStates = []VoucherSlotState{
	VoucherSlotStateEmpty,
	VoucherSlotStateCodeEntered,
	VoucherSlotStateApplied,
}

// String implements fmt.Stringer.
func (v VoucherSlotState) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VoucherSlotState.
func (v VoucherSlotState) IsValid() bool {
	for _, candidate := range validVoucherSlotStates {
		if candidate == v {
			return true
		}
	}
	return false
}

package enums

import "fmt"

// CartLineWarningType enumerates the warnings attached to cart mutations.
type CartLineWarningType string

const (
	CartLineWarningTypeClampedToMin   CartLineWarningType = "clamped_to_min"
	CartLineWarningTypeClampedToStock CartLineWarningType = "clamped_to_stock"
	CartLineWarningTypeRolledBack     CartLineWarningType = "rolled_back"
	CartLineWarningTypePartialFailure CartLineWarningType = "partial_failure"
	CartLineWarningTypeRefetched      CartLineWarningType = "refetched"
)

var validCartLineWarningTypes = []CartLineWarningType{
	CartLineWarningTypeClampedToMin,
	CartLineWarningTypeClampedToStock,
	CartLineWarningTypeRolledBack,
	CartLineWarningTypePartialFailure,
	CartLineWarningTypeRefetched,
}

// String implements fmt.Stringer.
func (c CartLineWarningType) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c CartLineWarningType) IsValid() bool {
	for _, candidate := range validCartLineWarningTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCartLineWarningType converts raw input into a CartLineWarningType.
func ParseCartLineWarningType(value string) (CartLineWarningType, error) {
	for _, candidate := range validCartLineWarningTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart line warning type %q", value)
}

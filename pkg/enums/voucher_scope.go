package enums

import (
	"fmt"
	"strings"
)

// VoucherScope distinguishes store-restricted vouchers from marketplace-wide ones.
type VoucherScope string

const (
	VoucherScopeStore    VoucherScope = "store"
	VoucherScopePlatform VoucherScope = "platform"
)

var validVoucherScopes = []VoucherScope{
	VoucherScopeStore,
	VoucherScopePlatform,
}

// backend aliases
var voucherScopeAliases = map[string]VoucherScope{
	"toko": VoucherScopeStore,
	"jaja": VoucherScopePlatform,
}

// String implements fmt.Stringer.
func (v VoucherScope) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VoucherScope.
func (v VoucherScope) IsValid() bool {
	for _, candidate := range validVoucherScopes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVoucherScope converts raw input, including the backend's "toko"/"jaja" labels, into a VoucherScope.
func ParseVoucherScope(value string) (VoucherScope, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if alias, ok := voucherScopeAliases[normalized]; ok {
		return alias, nil
	}
	for _, candidate := range validVoucherScopes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid voucher scope %q", value)
}

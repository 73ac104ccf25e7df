package validators

import (
	"strings"
	"unicode"
)

// NormalizeCode cleans a coupon or voucher code typed by a shopper: whitespace
// anywhere in the code is dropped and the result is cut to maxLen runes.
func NormalizeCode(input string, maxLen int) string {
	code := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, input)
	if maxLen > 0 {
		if runes := []rune(code); len(runes) > maxLen {
			code = string(runes[:maxLen])
		}
	}
	return code
}

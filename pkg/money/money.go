// Package money renders integer amounts in the smallest currency unit for display.
package money

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultSymbol is the rupiah prefix used by the storefront.
const DefaultSymbol = "Rp"

var idPrinter = message.NewPrinter(language.Indonesian)

// Format renders amount in rupiah with Indonesian digit grouping, e.g. "Rp 1.234.567".
func Format(amount int64) string {
	return render(idPrinter, DefaultSymbol, amount)
}

// FormatFor renders amount with the grouping rules of tag and the given symbol.
func FormatFor(tag language.Tag, symbol string, amount int64) string {
	return render(message.NewPrinter(tag), symbol, amount)
}

func render(p *message.Printer, symbol string, amount int64) string {
	sign := ""
	magnitude := uint64(amount)
	if amount < 0 {
		sign = "-"
		if amount == math.MinInt64 {
			magnitude = uint64(math.MaxInt64) + 1
		} else {
			magnitude = uint64(-amount)
		}
	}
	if symbol == "" {
		return p.Sprintf("%s%d", sign, magnitude)
	}
	return p.Sprintf("%s%s %d", sign, symbol, magnitude)
}

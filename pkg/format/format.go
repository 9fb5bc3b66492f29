// Package format renders amounts and percentages for display.
package format

import (
	"fmt"
	"math"

	"github.com/dubai-invest/dubai-invest/pkg/constants"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Amount returns a whole-unit amount with thousands separators (e.g., "-1,234").
func Amount(amount float64) string {
	// Adding zero turns a negative zero from rounding into a plain zero.
	return printer.Sprintf("%.0f", math.Round(amount)+0)
}

// Currency returns a whole-unit amount followed by the currency code (e.g., "1,500,000 AED").
func Currency(amount float64) string {
	return Amount(amount) + " " + constants.CurrencyCode
}

// Percent returns a percentage with one decimal (e.g., "6.0%").
func Percent(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}

// Compact shortens large counts, e.g. 1260000 as "1.3M" and 8400 as "8.4K".
func Compact(n float64) string {
	switch {
	case n >= 1000000:
		return fmt.Sprintf("%.1fM", n/1000000)
	case n >= 1000:
		return fmt.Sprintf("%.1fK", n/1000)
	}
	return Amount(n)
}

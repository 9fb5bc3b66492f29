// Package validation provides advisory checks on market data and common
// input validation utilities.
package validation

import (
	"fmt"

	"github.com/dubai-invest/dubai-invest/pkg/constants"
)

// Figures are the market figures that get a plausibility check. Nil means
// the figure was not supplied.
type Figures struct {
	AvgPricePerSqm     *float64
	GrossYield         *float64
	PriceChangePercent *float64
}

// CheckFigures returns a warning per implausible figure. Warnings are
// advisory and never block an import.
func CheckFigures(f Figures) []string {
	var warnings []string

	if f.AvgPricePerSqm != nil && *f.AvgPricePerSqm < 0 {
		warnings = append(warnings, "Price per SQM cannot be negative")
	}

	if f.GrossYield != nil && (*f.GrossYield < constants.MinGrossYieldPercent || *f.GrossYield > constants.MaxGrossYieldPercent) {
		warnings = append(warnings, fmt.Sprintf("Suspicious Gross Yield: %v%%", *f.GrossYield))
	}

	if f.PriceChangePercent != nil && (*f.PriceChangePercent < constants.MinPriceChangePercent || *f.PriceChangePercent > constants.MaxPriceChangePercent) {
		warnings = append(warnings, fmt.Sprintf("Suspicious Price Change: %v%%", *f.PriceChangePercent))
	}

	return warnings
}

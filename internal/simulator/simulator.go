// Package simulator projects the returns of a buy-to-let property purchase
// held for a number of years and then resold.
package simulator

import (
	"errors"
	"fmt"

	"github.com/dubai-invest/dubai-invest/pkg/constants"
	"github.com/dubai-invest/dubai-invest/pkg/finance"
	"github.com/dubai-invest/dubai-invest/pkg/mathutil"
	"github.com/dubai-invest/dubai-invest/pkg/numparse"
	"go.uber.org/zap"
)

// ErrInvalidFinancing is returned when a simulation has a purchase price but
// no positive down payment to compute the return on equity against.
var ErrInvalidFinancing = errors.New("invalid financing input: down payment must be positive")

// ErrInvalidHoldingPeriod is returned when the holding period exceeds
// constants.MaxHoldingYears.
var ErrInvalidHoldingPeriod = fmt.Errorf("invalid holding period: at most %d years", constants.MaxHoldingYears)

// Inputs holds the purchase, financing and operating assumptions.
type Inputs struct {
	PurchasePrice      float64 `json:"purchasePrice"`
	DownPayment        float64 `json:"downPayment"`
	AnnualRent         float64 `json:"annualRent"`
	AnnualCharges      float64 `json:"annualCharges"`
	VacancyRatePercent float64 `json:"vacancyRatePercent"`
	ResaleValue        float64 `json:"resaleValue"`
	HoldingYears       int     `json:"holdingYears"`
}

// RawInputs holds the same assumptions as typed by a user.
type RawInputs struct {
	PurchasePrice      numparse.Text `json:"purchasePrice" yaml:"purchasePrice" mapstructure:"purchasePrice"`
	DownPayment        numparse.Text `json:"downPayment" yaml:"downPayment" mapstructure:"downPayment"`
	AnnualRent         numparse.Text `json:"annualRent" yaml:"annualRent" mapstructure:"annualRent"`
	AnnualCharges      numparse.Text `json:"annualCharges" yaml:"annualCharges" mapstructure:"annualCharges"`
	VacancyRatePercent numparse.Text `json:"vacancyRatePercent" yaml:"vacancyRatePercent" mapstructure:"vacancyRatePercent"`
	ResaleValue        numparse.Text `json:"resaleValue" yaml:"resaleValue" mapstructure:"resaleValue"`
	HoldingYears       numparse.Text `json:"holdingYears" yaml:"holdingYears" mapstructure:"holdingYears"`
}

// Parse converts raw text leniently: unreadable amounts become zero and an
// unreadable or non-positive holding period becomes the default.
func (r RawInputs) Parse() Inputs {
	return Inputs{
		PurchasePrice:      r.PurchasePrice.Float(),
		DownPayment:        r.DownPayment.Float(),
		AnnualRent:         r.AnnualRent.Float(),
		AnnualCharges:      r.AnnualCharges.Float(),
		VacancyRatePercent: r.VacancyRatePercent.Float(),
		ResaleValue:        r.ResaleValue.Float(),
		HoldingYears:       r.HoldingYears.PositiveIntOr(constants.DefaultHoldingYears),
	}
}

// YearProjection is the position at the end of a holding year.
type YearProjection struct {
	Year                  int     `json:"year"`
	CumulativeCashflow    float64 `json:"cumulativeCashflow"`
	EstimatedValue        float64 `json:"estimatedValue"`
	CumulativeTotalReturn float64 `json:"cumulativeTotalReturn"`
}

// Result is a simulation outcome. Percentages carry one decimal and amounts
// whole currency units.
type Result struct {
	GrossYieldPercent float64          `json:"grossYieldPercent"`
	NetYieldPercent   float64          `json:"netYieldPercent"`
	AnnualCashflow    float64          `json:"annualCashflow"`
	TotalCashflow     float64          `json:"totalCashflow"`
	CapitalGain       float64          `json:"capitalGain"`
	TotalReturn       float64          `json:"totalReturn"`
	ROIPercent        float64          `json:"roiPercent"`
	IRRPercent        float64          `json:"irrPercent"`
	IRRConverged      bool             `json:"irrConverged"`
	Projections       []YearProjection `json:"projections"`
}

// Simulator runs simulations. It holds no state besides its logger and is
// safe for concurrent use.
type Simulator struct {
	logger *zap.Logger
}

// New creates a Simulator. A nil logger is replaced by a no-op logger.
func New(logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{logger: logger}
}

// SimulateRaw parses raw text inputs and simulates them.
func (s *Simulator) SimulateRaw(raw RawInputs) (*Result, error) {
	return s.Simulate(raw.Parse())
}

// Simulate computes yields, cash flows, ROI, IRR and the yearly projection.
//
// A non-positive purchase price means there is nothing to simulate yet: the
// result is nil with a nil error. A positive price without a positive down
// payment returns ErrInvalidFinancing. A non-positive holding period is
// replaced by constants.DefaultHoldingYears and one longer than
// constants.MaxHoldingYears returns ErrInvalidHoldingPeriod.
func (s *Simulator) Simulate(in Inputs) (*Result, error) {
	if in.PurchasePrice <= 0 {
		return nil, nil
	}
	if in.DownPayment <= 0 {
		return nil, ErrInvalidFinancing
	}
	years := in.HoldingYears
	if years <= 0 {
		years = constants.DefaultHoldingYears
	}
	if years > constants.MaxHoldingYears {
		return nil, ErrInvalidHoldingPeriod
	}

	effectiveRent := in.AnnualRent - mathutil.ApplyPercentage(in.AnnualRent, in.VacancyRatePercent)
	netRent := effectiveRent - in.AnnualCharges
	grossYield := mathutil.CalculatePercentage(in.AnnualRent, in.PurchasePrice)
	netYield := mathutil.CalculatePercentage(netRent, in.PurchasePrice)

	totalCashflow := netRent * float64(years)
	capitalGain := in.ResaleValue - in.PurchasePrice
	totalReturn := totalCashflow + capitalGain
	roi := mathutil.CalculatePercentage(totalReturn, in.DownPayment)

	irr := finance.SolveIRR(finance.HoldingCashflows(in.DownPayment, netRent, in.ResaleValue, years))
	if !irr.Converged {
		s.logger.Debug("IRR search did not converge, returning best effort",
			zap.String("op", "simulator.Simulate"),
			zap.Float64("rate", irr.Rate),
			zap.Int("iterations", irr.Iterations),
		)
	}

	result := &Result{
		GrossYieldPercent: mathutil.RoundPercent(grossYield),
		NetYieldPercent:   mathutil.RoundPercent(netYield),
		AnnualCashflow:    mathutil.RoundCurrency(netRent),
		TotalCashflow:     mathutil.RoundCurrency(totalCashflow),
		CapitalGain:       mathutil.RoundCurrency(capitalGain),
		ROIPercent:        mathutil.RoundPercent(roi),
		IRRPercent:        mathutil.RoundPercent(irr.Rate * constants.PercentageMultiplier),
		IRRConverged:      irr.Converged,
		Projections:       Project(in.PurchasePrice, netRent, capitalGain, years),
	}
	// Summed after rounding so the displayed figures always add up.
	result.TotalReturn = result.TotalCashflow + result.CapitalGain

	return result, nil
}

// Project returns one entry per holding year. The property value moves in a
// straight line from the purchase price to the resale value.
func Project(purchasePrice, netAnnualRent, capitalGain float64, years int) []YearProjection {
	if years <= 0 {
		return nil
	}
	projections := make([]YearProjection, 0, years)
	for y := 1; y <= years; y++ {
		cumulativeCashflow := netAnnualRent * float64(y)
		estimatedValue := purchasePrice + capitalGain/float64(years)*float64(y)
		projections = append(projections, YearProjection{
			Year:                  y,
			CumulativeCashflow:    mathutil.RoundCurrency(cumulativeCashflow),
			EstimatedValue:        mathutil.RoundCurrency(estimatedValue),
			CumulativeTotalReturn: mathutil.RoundCurrency(cumulativeCashflow + estimatedValue - purchasePrice),
		})
	}
	return projections
}

package market

import (
	"math"
	"time"

	"github.com/dubai-invest/dubai-invest/pkg/constants"
	"github.com/dubai-invest/dubai-invest/pkg/mathutil"
)

// Metrics are indicators derived from a district's latest snapshot. A nil
// field could not be computed from the available data.
type Metrics struct {
	GrossYield    *float64 `json:"grossYield"`
	CapitalGrowth *float64 `json:"capitalGrowth"`
	PricePerSqm   *float64 `json:"pricePerSqm"`
	ROI5Year      *float64 `json:"roi5Year"`
}

// ComputeMetrics derives the headline indicators from the most recent
// snapshot. A missing or zero stored gross yield is recomputed from the
// annual rent and the price per square metre.
func ComputeMetrics(stats []Snapshot) Metrics {
	latest, ok := Latest(stats)
	if !ok {
		return Metrics{}
	}

	var m Metrics
	grossYield := Value(latest.GrossYield)
	if grossYield == 0 && Value(latest.AvgRentNew) != 0 && Value(latest.AvgPricePerSqm) != 0 {
		grossYield = mathutil.CalculatePercentage(*latest.AvgRentNew, *latest.AvgPricePerSqm)
	}
	if grossYield != 0 {
		m.GrossYield = Float(mathutil.RoundMetric(grossYield))
	}

	if latest.PriceChangePercent != nil {
		m.CapitalGrowth = Float(mathutil.RoundMetric(*latest.PriceChangePercent))
	}

	if latest.AvgPricePerSqm != nil {
		m.PricePerSqm = Float(*latest.AvgPricePerSqm)
	}

	if Value(latest.AvgPricePerSqm) != 0 && grossYield != 0 && latest.PriceChangePercent != nil {
		years := float64(constants.ROIProjectionYears)
		rentReturn := grossYield / constants.PercentageMultiplier * years
		appreciation := math.Pow(1+*latest.PriceChangePercent/constants.PercentageMultiplier, years) - 1
		m.ROI5Year = Float(mathutil.RoundMetric((rentReturn + appreciation) * constants.PercentageMultiplier))
	}

	return m
}

// Summary aggregates every district's statistics for one year.
type Summary struct {
	Year               int     `json:"year"`
	AvgPricePerSqm     float64 `json:"avgPricePerSqm"`
	AvgYield           float64 `json:"avgYield"`
	AvgGrowth          float64 `json:"avgGrowth"`
	TotalTransactions  int64   `json:"totalTransactions"`
	TotalValueBillions float64 `json:"totalValueBillions"`
	DistrictCount      int     `json:"districtCount"`
}

// Aggregate summarises the snapshots of year. When year has no data the most
// recent year that does is used instead; ok is false only when stats is
// empty. A zero year selects constants.DefaultScoringYear.
func Aggregate(stats []Snapshot, year int) (Summary, bool) {
	if len(stats) == 0 {
		return Summary{}, false
	}
	if year == 0 {
		year = constants.DefaultScoringYear
	}

	yearStats := ForYear(stats, year)
	if len(yearStats) == 0 {
		latest, _ := Latest(stats)
		year = latest.Year
		yearStats = ForYear(stats, year)
	}

	var price, yield, growth, value float64
	var transactions int64
	for _, s := range yearStats {
		price += Value(s.AvgPricePerSqm)
		yield += Value(s.GrossYield)
		growth += Value(s.PriceChangePercent)
		value += Value(s.TransactionValue)
		if s.TransactionVolume != nil {
			transactions += *s.TransactionVolume
		}
	}
	n := float64(len(yearStats))

	return Summary{
		Year:               year,
		AvgPricePerSqm:     mathutil.RoundCurrency(price / n),
		AvgYield:           mathutil.RoundPercent(yield / n),
		AvgGrowth:          mathutil.RoundPercent(growth / n),
		TotalTransactions:  transactions,
		TotalValueBillions: mathutil.RoundPercent(value / 1e9),
		DistrictCount:      len(yearStats),
	}, true
}

// ForYear returns the snapshots recorded for year, in input order.
func ForYear(stats []Snapshot, year int) []Snapshot {
	var out []Snapshot
	for _, s := range stats {
		if s.Year == year {
			out = append(out, s)
		}
	}
	return out
}

// TrendRange selects how much history a price trend covers.
type TrendRange string

const (
	TrendThreeMonths TrendRange = "3M"
	TrendSixMonths   TrendRange = "6M"
	TrendOneYear     TrendRange = "1Y"
	TrendThreeYears  TrendRange = "3Y"
	TrendAll         TrendRange = "All"
)

// FilterTrend returns the snapshots covered by rng in chronological order.
// Statistics are quarterly at best, so 3M and 6M keep the latest one and two
// snapshots. Any unrecognised range keeps everything.
func FilterTrend(stats []Snapshot, rng TrendRange, now time.Time) []Snapshot {
	sorted := SortNewestFirst(stats)

	var filtered []Snapshot
	switch rng {
	case TrendThreeMonths:
		filtered = sorted[:min(1, len(sorted))]
	case TrendSixMonths:
		filtered = sorted[:min(2, len(sorted))]
	case TrendOneYear, TrendThreeYears:
		back := 1
		if rng == TrendThreeYears {
			back = 3
		}
		for _, s := range sorted {
			if s.Year >= now.Year()-back {
				filtered = append(filtered, s)
			}
		}
	default:
		filtered = sorted
	}

	chronological := make([]Snapshot, len(filtered))
	for i, s := range filtered {
		chronological[len(filtered)-1-i] = s
	}
	return chronological
}

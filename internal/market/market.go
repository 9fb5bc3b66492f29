// Package market defines the district market statistics consumed by the
// scoring and simulation code, plus the helpers that select and summarise
// them.
package market

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dubai-invest/dubai-invest/pkg/numparse"
	"github.com/dubai-invest/dubai-invest/pkg/validation"
)

// Snapshot is one district's market statistics for a year and, optionally,
// a quarter. Pointer fields are absent when the source had no value.
type Snapshot struct {
	ID                 int64    `json:"id,omitempty"`
	DistrictID         int64    `json:"districtId"`
	Year               int      `json:"year"`
	Quarter            string   `json:"quarter,omitempty"`
	AvgPricePerSqm     *float64 `json:"avgPricePerSqm,omitempty"`
	PriceChangePercent *float64 `json:"priceChangePercent,omitempty"`
	AvgRentNew         *float64 `json:"avgRentNew,omitempty"`
	AvgRentRenewed     *float64 `json:"avgRentRenewed,omitempty"`
	GrossYield         *float64 `json:"grossYield,omitempty"`
	NetYield           *float64 `json:"netYield,omitempty"`
	TransactionVolume  *int64   `json:"transactionVolume,omitempty"`
	TransactionValue   *float64 `json:"transactionValue,omitempty"`
	AvgPriceApartment  *float64 `json:"avgPriceApartment,omitempty"`
	AvgPriceVilla      *float64 `json:"avgPriceVilla,omitempty"`
	OffPlanShare       *float64 `json:"offPlanShare,omitempty"`
	ReadyShare         *float64 `json:"readyShare,omitempty"`
}

// Warnings lists implausible figures in the snapshot.
func (s Snapshot) Warnings() []string {
	return validation.CheckFigures(validation.Figures{
		AvgPricePerSqm:     s.AvgPricePerSqm,
		GrossYield:         s.GrossYield,
		PriceChangePercent: s.PriceChangePercent,
	})
}

// QuarterNumber returns n for a "Q<n>" quarter and 0 when the quarter is
// missing or unreadable.
func (s Snapshot) QuarterNumber() int {
	q := strings.TrimSpace(s.Quarter)
	q = strings.TrimPrefix(strings.ToUpper(q), "Q")
	n, ok := numparse.Int(q)
	if !ok {
		return 0
	}
	return n
}

// GrossYieldValue returns the gross yield, or zero when absent.
func (s Snapshot) GrossYieldValue() float64 {
	return Value(s.GrossYield)
}

// PriceChangeValue returns the price change percent, or zero when absent.
func (s Snapshot) PriceChangeValue() float64 {
	return Value(s.PriceChangePercent)
}

// Value dereferences an optional field, treating absence as zero.
func Value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Float returns a pointer to v, for building snapshots in code.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v, for building snapshots in code.
func Int(v int64) *int64 {
	return &v
}

// newerThan orders snapshots by year, then quarter number.
func (s Snapshot) newerThan(other Snapshot) bool {
	if s.Year != other.Year {
		return s.Year > other.Year
	}
	return s.QuarterNumber() > other.QuarterNumber()
}

// SortNewestFirst orders snapshots by descending year, then descending
// quarter. Ties keep their input order.
func SortNewestFirst(stats []Snapshot) []Snapshot {
	sorted := append([]Snapshot(nil), stats...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].newerThan(sorted[j])
	})
	return sorted
}

// Latest returns the most recent snapshot. ok is false for an empty slice.
func Latest(stats []Snapshot) (Snapshot, bool) {
	if len(stats) == 0 {
		return Snapshot{}, false
	}
	latest := stats[0]
	for _, s := range stats[1:] {
		if s.newerThan(latest) {
			latest = s
		}
	}
	return latest, true
}

// SupplyRisk classifies the oversupply danger of a district for a year.
type SupplyRisk string

const (
	SupplyRiskLow      SupplyRisk = "low"
	SupplyRiskModerate SupplyRisk = "moderate"
	SupplyRiskHigh     SupplyRisk = "high"
)

// ParseSupplyRisk reads a risk level case-insensitively. Unknown text maps to
// SupplyRiskLow with ok unset, which scores it like a low-risk district.
func ParseSupplyRisk(text string) (SupplyRisk, bool) {
	switch SupplyRisk(strings.ToLower(strings.TrimSpace(text))) {
	case SupplyRiskHigh:
		return SupplyRiskHigh, true
	case SupplyRiskModerate:
		return SupplyRiskModerate, true
	case SupplyRiskLow:
		return SupplyRiskLow, true
	}
	return SupplyRiskLow, false
}

// Valid reports whether r is one of the known levels.
func (r SupplyRisk) Valid() bool {
	return r == SupplyRiskLow || r == SupplyRiskModerate || r == SupplyRiskHigh
}

// SupplyRecord is a district's housing pipeline for a year.
type SupplyRecord struct {
	ID             int64      `json:"id,omitempty"`
	DistrictID     int64      `json:"districtId"`
	Year           int        `json:"year"`
	UnitsPlanned   *int64     `json:"unitsPlanned,omitempty"`
	UnitsDelivered *int64     `json:"unitsDelivered,omitempty"`
	MajorProjects  []string   `json:"majorProjects,omitempty"`
	RiskLevel      SupplyRisk `json:"supplyRiskLevel,omitempty"`
}

// RiskForYear returns the risk level recorded for year, falling back to the
// most recent earlier record. ok is false when no record applies.
func RiskForYear(records []SupplyRecord, year int) (SupplyRisk, bool) {
	best := -1
	for i, r := range records {
		if r.Year > year {
			continue
		}
		if best < 0 || r.Year > records[best].Year {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	risk, _ := ParseSupplyRisk(string(records[best].RiskLevel))
	return risk, true
}

// District is a Dubai area tracked by the application.
type District struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`
	NameAr           string   `json:"nameAr,omitempty"`
	Category         string   `json:"category"`
	Description      string   `json:"description,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	DominantTypology string   `json:"dominantTypology,omitempty"`
	MarketStatus     string   `json:"marketStatus"`
	StatusLabel      string   `json:"statusLabel"`
}

func (d District) String() string {
	return fmt.Sprintf("%s (#%d)", d.Name, d.ID)
}

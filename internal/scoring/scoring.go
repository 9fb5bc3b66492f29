// Package scoring rates districts as investment opportunities from their
// latest market snapshot and supply risk.
package scoring

import (
	"math"
	"sort"

	"github.com/dubai-invest/dubai-invest/internal/market"
	"github.com/dubai-invest/dubai-invest/pkg/constants"
	"github.com/dubai-invest/dubai-invest/pkg/mathutil"
)

// Recommendations and investor profiles.
const (
	RecommendationBuy         = "Buy recommended"
	RecommendationSelective   = "Selective opportunity"
	RecommendationCaution     = "Caution — supply risk"
	RecommendationObservation = "Observation"

	ProfileBuyToLet      = "Buy-to-Let"
	ProfileCapitalGrowth = "Capital Growth"
	ProfileExperienced   = "Experienced investor"
	ProfileLongTerm      = "Long-term only"
	ProfileAll           = "All profiles"
)

// Score is the rating of one district.
type Score struct {
	YieldScore          float64 `json:"yieldScore"`
	CapitalGrowthScore  float64 `json:"capitalGrowthScore"`
	SupplyRiskScore     float64 `json:"supplyRiskScore"`
	AttractivenessScore float64 `json:"attractivenessScore"`
	Recommendation      string  `json:"recommendation"`
	InvestorProfile     string  `json:"investorProfile"`
}

// Band maps an attractiveness score to a recommendation. Bands are tried in
// order and the first match wins.
type Band struct {
	Matches        func(attractiveness float64) bool
	Recommendation string
	Profile        func(grossYield float64) string
}

func fixedProfile(profile string) func(float64) string {
	return func(float64) string { return profile }
}

// Bands is the ordered recommendation table.
var Bands = []Band{
	{
		Matches:        func(a float64) bool { return a >= constants.BuyThreshold },
		Recommendation: RecommendationBuy,
		Profile: func(grossYield float64) string {
			if grossYield >= constants.BuyToLetYieldPercent {
				return ProfileBuyToLet
			}
			return ProfileCapitalGrowth
		},
	},
	{
		Matches:        func(a float64) bool { return a >= constants.SelectiveThreshold },
		Recommendation: RecommendationSelective,
		Profile:        fixedProfile(ProfileExperienced),
	},
	{
		Matches:        func(a float64) bool { return a < constants.CautionThreshold },
		Recommendation: RecommendationCaution,
		Profile:        fixedProfile(ProfileLongTerm),
	},
	{
		Matches:        func(float64) bool { return true },
		Recommendation: RecommendationObservation,
		Profile:        fixedProfile(ProfileAll),
	},
}

// YieldScore scales gross yield so the reference yield scores the maximum.
func YieldScore(grossYield float64) float64 {
	return math.Min(constants.MaxSubScore, grossYield/constants.YieldReferencePercent*constants.MaxSubScore)
}

// CapitalGrowthScore scales the yearly price change the same way. There is no
// lower bound, so falling prices score below zero.
func CapitalGrowthScore(priceChange float64) float64 {
	return math.Min(constants.MaxSubScore, priceChange/constants.GrowthReferencePercent*constants.MaxSubScore)
}

// SupplyRiskScore is higher for safer districts. Unknown levels score as low
// risk.
func SupplyRiskScore(risk market.SupplyRisk) float64 {
	switch risk {
	case market.SupplyRiskHigh:
		return constants.SupplyRiskScoreHigh
	case market.SupplyRiskModerate:
		return constants.SupplyRiskScoreModerate
	default:
		return constants.SupplyRiskScoreLow
	}
}

// Compute scores a district. Missing snapshot figures count as zero.
func Compute(latest market.Snapshot, risk market.SupplyRisk) Score {
	grossYield := latest.GrossYieldValue()

	score := Score{
		YieldScore:         YieldScore(grossYield),
		CapitalGrowthScore: CapitalGrowthScore(latest.PriceChangeValue()),
		SupplyRiskScore:    SupplyRiskScore(risk),
	}
	score.AttractivenessScore = mathutil.RoundPercent(
		score.YieldScore*constants.YieldWeight +
			score.CapitalGrowthScore*constants.GrowthWeight +
			score.SupplyRiskScore*constants.SupplyRiskWeight,
	)

	for _, band := range Bands {
		if band.Matches(score.AttractivenessScore) {
			score.Recommendation = band.Recommendation
			score.InvestorProfile = band.Profile(grossYield)
			break
		}
	}
	return score
}

// DistrictInput is everything known about a district that feeds its score.
type DistrictInput struct {
	District market.District
	Stats    []market.Snapshot
	Supply   []market.SupplyRecord
}

// Ranked is a scored district.
type Ranked struct {
	District market.District   `json:"district"`
	Snapshot market.Snapshot   `json:"snapshot"`
	Risk     market.SupplyRisk `json:"supplyRisk"`
	Score    Score             `json:"score"`
}

// Rank scores every district that has at least one snapshot, using its latest
// snapshot and the supply risk for that snapshot's year. The result is sorted
// by attractiveness, best first, with ties broken by district name.
func Rank(inputs []DistrictInput) []Ranked {
	ranked := make([]Ranked, 0, len(inputs))
	for _, in := range inputs {
		latest, ok := market.Latest(in.Stats)
		if !ok {
			continue
		}
		risk, ok := market.RiskForYear(in.Supply, latest.Year)
		if !ok {
			risk = market.SupplyRiskLow
		}
		ranked = append(ranked, Ranked{
			District: in.District,
			Snapshot: latest,
			Risk:     risk,
			Score:    Compute(latest, risk),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Score.AttractivenessScore, ranked[j].Score.AttractivenessScore
		if a != b {
			return a > b
		}
		return ranked[i].District.Name < ranked[j].District.Name
	})
	return ranked
}

// ForYear narrows every district's snapshots to those of year. Districts
// keep their supply records so risk can still fall back to earlier years.
func ForYear(inputs []DistrictInput, year int) []DistrictInput {
	out := make([]DistrictInput, 0, len(inputs))
	for _, in := range inputs {
		in.Stats = market.ForYear(in.Stats, year)
		out = append(out, in)
	}
	return out
}

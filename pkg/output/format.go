// Package output renders simulation results and district rankings.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/dubai-invest/dubai-invest/internal/scoring"
	"github.com/dubai-invest/dubai-invest/internal/simulator"
	"github.com/dubai-invest/dubai-invest/pkg/constants"
	"github.com/dubai-invest/dubai-invest/pkg/format"
	"github.com/olekukonko/tablewriter"
)

// Simulation writes a simulation result in the requested output format.
func Simulation(w io.Writer, outputFormat string, result *simulator.Result) error {
	switch outputFormat {
	case constants.OutputFormatCSV:
		return SimulationCSV(w, result)
	case constants.OutputFormatJSON:
		return JSON(w, result)
	default:
		return SimulationPretty(w, result)
	}
}

// Ranking writes scored districts in the requested output format.
func Ranking(w io.Writer, outputFormat string, ranked []scoring.Ranked) error {
	switch outputFormat {
	case constants.OutputFormatCSV:
		return RankingCSV(w, ranked)
	case constants.OutputFormatJSON:
		return JSON(w, ranked)
	default:
		return RankingPretty(w, ranked)
	}
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// SimulationPretty outputs a human-readable summary followed by the yearly
// projection table.
func SimulationPretty(w io.Writer, result *simulator.Result) error {
	if result == nil {
		_, err := fmt.Fprintln(w, "Insufficient input: enter a purchase price to simulate.")
		return err
	}

	irr := format.Percent(result.IRRPercent)
	if !result.IRRConverged {
		irr += " (approximate)"
	}

	lines := [][2]string{
		{"Gross yield", format.Percent(result.GrossYieldPercent)},
		{"Net yield", format.Percent(result.NetYieldPercent)},
		{"Annual cashflow", format.Currency(result.AnnualCashflow)},
		{"Total cashflow", format.Currency(result.TotalCashflow)},
		{"Capital gain", format.Currency(result.CapitalGain)},
		{"Total return", format.Currency(result.TotalReturn)},
		{"ROI", format.Percent(result.ROIPercent)},
		{"IRR", irr},
	}
	fmt.Fprintln(w, "--- Simulation results ---")
	for _, line := range lines {
		fmt.Fprintf(w, "%-16s %s\n", line[0]+":", line[1])
	}
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.Header("Year", "Cumulative cashflow", "Estimated value", "Cumulative return")
	for _, p := range result.Projections {
		if err := table.Append(
			strconv.Itoa(p.Year),
			format.Currency(p.CumulativeCashflow),
			format.Currency(p.EstimatedValue),
			format.Currency(p.CumulativeTotalReturn),
		); err != nil {
			return fmt.Errorf("output.SimulationPretty: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("output.SimulationPretty: %w", err)
	}
	return nil
}

// SimulationCSV outputs the summary as metric/value rows, a blank line, then
// the yearly projection.
func SimulationCSV(w io.Writer, result *simulator.Result) error {
	cw := csv.NewWriter(w)
	if result == nil {
		cw.Flush()
		return cw.Error()
	}

	records := [][]string{
		{"metric", "value"},
		{"gross_yield_percent", number(result.GrossYieldPercent)},
		{"net_yield_percent", number(result.NetYieldPercent)},
		{"annual_cashflow", number(result.AnnualCashflow)},
		{"total_cashflow", number(result.TotalCashflow)},
		{"capital_gain", number(result.CapitalGain)},
		{"total_return", number(result.TotalReturn)},
		{"roi_percent", number(result.ROIPercent)},
		{"irr_percent", number(result.IRRPercent)},
		{"irr_converged", strconv.FormatBool(result.IRRConverged)},
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("output.SimulationCSV: %w", err)
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	records = [][]string{{"year", "cumulative_cashflow", "estimated_value", "cumulative_total_return"}}
	for _, p := range result.Projections {
		records = append(records, []string{
			strconv.Itoa(p.Year),
			number(p.CumulativeCashflow),
			number(p.EstimatedValue),
			number(p.CumulativeTotalReturn),
		})
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("output.SimulationCSV: %w", err)
	}
	return nil
}

// RankingPretty outputs scored districts as a table, best first.
func RankingPretty(w io.Writer, ranked []scoring.Ranked) error {
	if len(ranked) == 0 {
		_, err := fmt.Fprintln(w, "No districts with market data to score.")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("#", "District", "Year", "Yield", "Growth", "Supply", "Score", "Recommendation", "Profile")
	for i, r := range ranked {
		if err := table.Append(
			strconv.Itoa(i+1),
			r.District.Name,
			strconv.Itoa(r.Snapshot.Year),
			fmt.Sprintf("%.2f", r.Score.YieldScore),
			fmt.Sprintf("%.2f", r.Score.CapitalGrowthScore),
			fmt.Sprintf("%.0f (%s)", r.Score.SupplyRiskScore, r.Risk),
			fmt.Sprintf("%.1f", r.Score.AttractivenessScore),
			r.Score.Recommendation,
			r.Score.InvestorProfile,
		); err != nil {
			return fmt.Errorf("output.RankingPretty: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("output.RankingPretty: %w", err)
	}
	return nil
}

// RankingCSV outputs scored districts in comma-separated value format.
func RankingCSV(w io.Writer, ranked []scoring.Ranked) error {
	records := [][]string{{
		"rank", "district", "year", "yield_score", "capital_growth_score",
		"supply_risk", "supply_risk_score", "attractiveness_score",
		"recommendation", "investor_profile",
	}}
	for i, r := range ranked {
		records = append(records, []string{
			strconv.Itoa(i + 1),
			r.District.Name,
			strconv.Itoa(r.Snapshot.Year),
			number(r.Score.YieldScore),
			number(r.Score.CapitalGrowthScore),
			string(r.Risk),
			number(r.Score.SupplyRiskScore),
			number(r.Score.AttractivenessScore),
			r.Score.Recommendation,
			r.Score.InvestorProfile,
		})
	}
	if err := csv.NewWriter(w).WriteAll(records); err != nil {
		return fmt.Errorf("output.RankingCSV: %w", err)
	}
	return nil
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dubai-invest/dubai-invest/internal/market"
	"github.com/dubai-invest/dubai-invest/internal/scoring"
	"github.com/dubai-invest/dubai-invest/internal/simulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult(t *testing.T) *simulator.Result {
	t.Helper()
	result, err := simulator.New(nil).Simulate(simulator.Inputs{
		PurchasePrice:      1500000,
		DownPayment:        375000,
		AnnualRent:         90000,
		AnnualCharges:      15000,
		VacancyRatePercent: 5,
		ResaleValue:        1800000,
		HoldingYears:       5,
	})
	require.NoError(t, err)
	return result
}

func sampleRanking() []scoring.Ranked {
	return scoring.Rank([]scoring.DistrictInput{
		{
			District: market.District{ID: 1, Name: "Dubai Marina"},
			Stats: []market.Snapshot{{
				Year:               2025,
				Quarter:            "Q4",
				GrossYield:         market.Float(7.8),
				PriceChangePercent: market.Float(15.3),
			}},
			Supply: []market.SupplyRecord{{Year: 2025, RiskLevel: market.SupplyRiskHigh}},
		},
		{
			District: market.District{ID: 2, Name: "Arjan"},
			Stats:    []market.Snapshot{{Year: 2025, GrossYield: market.Float(8)}},
			Supply:   []market.SupplyRecord{{Year: 2025, RiskLevel: market.SupplyRiskHigh}},
		},
	})
}

func TestSimulationPretty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SimulationPretty(&buf, sampleResult(t)))
	out := buf.String()

	assert.Contains(t, out, "--- Simulation results ---")
	assert.Contains(t, out, "6.0%")
	assert.Contains(t, out, "4.7%")
	assert.Contains(t, out, "70,500 AED")
	assert.Contains(t, out, "652,500 AED")
	assert.Contains(t, out, "174.0%")
	assert.Contains(t, out, "1,560,000 AED")
	assert.Contains(t, out, "1,800,000 AED")
	assert.NotContains(t, out, "approximate")
}

func TestSimulationPrettyNilResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SimulationPretty(&buf, nil))
	assert.Contains(t, buf.String(), "Insufficient input")
}

func TestSimulationCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SimulationCSV(&buf, sampleResult(t)))

	sections := strings.Split(buf.String(), "\n\n")
	require.Len(t, sections, 2)

	summary := strings.Split(strings.TrimSpace(sections[0]), "\n")
	assert.Equal(t, "metric,value", summary[0])
	assert.Contains(t, summary, "gross_yield_percent,6")
	assert.Contains(t, summary, "total_return,652500")
	assert.Contains(t, summary, "roi_percent,174")
	assert.Contains(t, summary, "irr_converged,true")

	projection := strings.Split(strings.TrimSpace(sections[1]), "\n")
	require.Len(t, projection, 6)
	assert.Equal(t, "year,cumulative_cashflow,estimated_value,cumulative_total_return", projection[0])
	assert.Equal(t, "1,70500,1560000,130500", projection[1])
	assert.Equal(t, "5,352500,1800000,652500", projection[5])
}

func TestSimulationJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Simulation(&buf, "json", sampleResult(t)))

	var decoded simulator.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 652500.0, decoded.TotalReturn)
	assert.Len(t, decoded.Projections, 5)
}

func TestRankingPretty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Ranking(&buf, "pretty", sampleRanking()))
	out := buf.String()

	assert.Contains(t, out, "Dubai Marina")
	assert.Contains(t, out, "Buy recommended")
	assert.Contains(t, out, "Buy-to-Let")
	assert.Contains(t, out, "Arjan")
	assert.Less(t, strings.Index(out, "Dubai Marina"), strings.Index(out, "Arjan"))
}

func TestRankingPrettyEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RankingPretty(&buf, nil))
	assert.Contains(t, buf.String(), "No districts")
}

func TestRankingCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Ranking(&buf, "csv", sampleRanking()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "rank,district,year"))
	assert.True(t, strings.HasPrefix(lines[1], "1,Dubai Marina,2025,9.75,10,high,3,7.8,Buy recommended,Buy-to-Let"))
	assert.True(t, strings.HasPrefix(lines[2], "2,Arjan,2025"))
}

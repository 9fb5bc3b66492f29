package importer_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dubai-invest/dubai-invest/internal/importer"
	"github.com/dubai-invest/dubai-invest/internal/market"
	"github.com/dubai-invest/dubai-invest/internal/scoring"
	"github.com/dubai-invest/dubai-invest/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

const sampleItems = `[
  {
    "districtName": "Arjan",
    "year": 2025,
    "quarter": "Q2",
    "avgPricePerSqm": 13500,
    "priceChangePercent": 7.5,
    "grossYield": 7.1,
    "supplyRiskLevel": "moderate",
    "unitsPlanned": 4200
  },
  {
    "districtName": "Arjan",
    "year": 2024,
    "avgPricePerSqm": 12600,
    "grossYield": 45
  }
]`

func TestImport(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	im := importer.New(store, nil)

	result, err := im.Import(ctx, strings.NewReader(sampleItems))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Success)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 0, result.Errors)
	assert.Equal(t, 1, result.Warnings)
	assert.Equal(t, []int{2024, 2025}, result.Years)

	district, err := store.DistrictByName(ctx, "Arjan")
	require.NoError(t, err)
	assert.Equal(t, importer.DefaultCategory, district.Category)
	assert.Equal(t, importer.DefaultMarketStatus, district.MarketStatus)
	assert.Equal(t, importer.DefaultStatusLabel, district.StatusLabel)

	stats, err := store.DistrictStats(ctx, district.ID, 0)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "Q2", stats[0].Quarter)
	assert.Equal(t, "Q4", stats[1].Quarter)

	supply, err := store.SupplyPipeline(ctx, district.ID)
	require.NoError(t, err)
	require.Len(t, supply, 1)
	assert.Equal(t, market.SupplyRiskModerate, supply[0].RiskLevel)
	assert.Equal(t, int64(4200), *supply[0].UnitsPlanned)

	again, err := im.Import(ctx, strings.NewReader(sampleItems))
	require.NoError(t, err)
	assert.Equal(t, 0, again.Success)
	assert.Equal(t, 2, again.Skipped)

	districts, err := store.Districts(ctx)
	require.NoError(t, err)
	assert.Len(t, districts, 1)
}

func TestImportItems_Errors(t *testing.T) {
	tests := []struct {
		name string
		item importer.Item
	}{
		{name: "Missing district name", item: importer.Item{Year: 2025}},
		{name: "Missing year", item: importer.Item{DistrictName: "Arjan"}},
		{name: "Latitude out of range", item: importer.Item{DistrictName: "Arjan", Year: 2025, Latitude: market.Float(120)}},
		{name: "Negative units", item: importer.Item{DistrictName: "Arjan", Year: 2025, UnitsPlanned: market.Int(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := openStore(t)
			result := importer.New(store, nil).ImportItems(context.Background(), []importer.Item{tt.item})
			assert.Equal(t, 1, result.Errors)
			assert.Equal(t, 0, result.Success)
			assert.Empty(t, result.Years)
		})
	}
}

func TestImportItems_UnknownRisk(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	result := importer.New(store, nil).ImportItems(ctx, []importer.Item{{
		DistrictName:    "Meydan",
		Year:            2025,
		GrossYield:      market.Float(5.5),
		SupplyRiskLevel: "extreme",
	}})
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 1, result.Warnings)

	district, err := store.DistrictByName(ctx, "Meydan")
	require.NoError(t, err)
	supply, err := store.SupplyPipeline(ctx, district.ID)
	require.NoError(t, err)
	require.Len(t, supply, 1)
	assert.Equal(t, market.SupplyRiskLow, supply[0].RiskLevel)
}

func TestImport_InvalidJSON(t *testing.T) {
	store := openStore(t)
	_, err := importer.New(store, nil).Import(context.Background(), strings.NewReader(`{"districtName":"Arjan"}`))
	assert.Error(t, err)
}

func TestImportFile(t *testing.T) {
	store := openStore(t)
	im := importer.New(store, nil)

	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleItems), 0o600))

	result, err := im.ImportFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Success)

	_, err = im.ImportFile(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	im := importer.New(store, nil)

	result, seeded, err := im.Seed(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)
	assert.Equal(t, 30, result.Success)
	assert.Equal(t, 0, result.Errors)
	assert.Equal(t, []int{2024, 2025}, result.Years)

	districts, err := store.Districts(ctx)
	require.NoError(t, err)
	assert.Len(t, districts, 15)

	_, seeded, err = im.Seed(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)
}

func TestRescore(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	_, _, err := importer.New(store, nil).Seed(ctx)
	require.NoError(t, err)

	ranked, err := importer.Rescore(ctx, store, 2025, nil)
	require.NoError(t, err)
	require.Len(t, ranked, 15)

	assert.Equal(t, "Jumeirah Lake Towers (JLT)", ranked[0].District.Name)
	assert.Equal(t, 7.9, ranked[0].Score.AttractivenessScore)
	assert.Equal(t, scoring.RecommendationBuy, ranked[0].Score.Recommendation)
	assert.Equal(t, "Palm Jumeirah", ranked[1].District.Name)
	assert.Equal(t, 7.6, ranked[1].Score.AttractivenessScore)

	opportunities, err := store.Opportunities(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, opportunities, 15)
	assert.Equal(t, ranked[0].District.ID, opportunities[0].DistrictID)
	assert.Equal(t, 7.9, opportunities[0].AttractivenessScore)

	_, err = importer.Rescore(ctx, store, 2024, nil)
	require.NoError(t, err)
	previous, err := store.Opportunities(ctx, 2024)
	require.NoError(t, err)
	assert.Len(t, previous, 15)
}

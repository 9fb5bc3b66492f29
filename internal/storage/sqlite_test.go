package storage_test

import (
	"context"
	"testing"

	"github.com/dubai-invest/dubai-invest/internal/market"
	"github.com/dubai-invest/dubai-invest/internal/scoring"
	"github.com/dubai-invest/dubai-invest/internal/simulator"
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

func createDistrict(t *testing.T, store *storage.Store, name string) market.District {
	t.Helper()
	d, err := store.CreateDistrict(context.Background(), market.District{
		Name:         name,
		Category:     "Premium",
		MarketStatus: "Mature / Stable",
		StatusLabel:  "stable",
		Latitude:     market.Float(25.08),
		Longitude:    market.Float(55.14),
	})
	require.NoError(t, err)
	return d
}

func TestStore_Districts(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	marina := createDistrict(t, store, "Dubai Marina")
	createDistrict(t, store, "Business Bay")
	assert.NotZero(t, marina.ID)

	districts, err := store.Districts(ctx)
	require.NoError(t, err)
	require.Len(t, districts, 2)
	assert.Equal(t, "Business Bay", districts[0].Name)
	assert.Equal(t, "Dubai Marina", districts[1].Name)

	got, err := store.District(ctx, marina.ID)
	require.NoError(t, err)
	assert.Equal(t, marina, got)

	byName, err := store.DistrictByName(ctx, "Dubai Marina")
	require.NoError(t, err)
	assert.Equal(t, marina.ID, byName.ID)

	_, err = store.District(ctx, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.DistrictByName(ctx, "Atlantis")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.CreateDistrict(ctx, market.District{Name: "Dubai Marina", Category: "x", MarketStatus: "x", StatusLabel: "x"})
	assert.Error(t, err, "names are unique")
}

func TestStore_InsertStatIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	d := createDistrict(t, store, "JVC")

	snap := market.Snapshot{
		DistrictID:        d.ID,
		Year:              2025,
		Quarter:           "Q4",
		AvgPricePerSqm:    market.Float(13800),
		GrossYield:        market.Float(7.5),
		TransactionVolume: market.Int(16200),
	}

	inserted, err := store.InsertStat(ctx, snap, "Dubai Land Department")
	require.NoError(t, err)
	assert.True(t, inserted)

	changed := snap
	changed.GrossYield = market.Float(9.9)
	inserted, err = store.InsertStat(ctx, changed, "")
	require.NoError(t, err)
	assert.False(t, inserted)

	other := snap
	other.Quarter = "Q3"
	inserted, err = store.InsertStat(ctx, other, "")
	require.NoError(t, err)
	assert.True(t, inserted)

	stats, err := store.DistrictStats(ctx, d.ID, 0)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "Q4", stats[0].Quarter)
	assert.InDelta(t, 7.5, *stats[0].GrossYield, 1e-9)
	assert.Equal(t, int64(16200), *stats[0].TransactionVolume)
	assert.Nil(t, stats[0].PriceChangePercent)

	yearStats, err := store.DistrictStats(ctx, d.ID, 2025)
	require.NoError(t, err)
	require.Len(t, yearStats, 2)
	assert.Equal(t, "Q3", yearStats[0].Quarter)

	none, err := store.DistrictStats(ctx, d.ID, 2019)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_AllStats(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	a := createDistrict(t, store, "A")
	b := createDistrict(t, store, "B")

	for _, snap := range []market.Snapshot{
		{DistrictID: a.ID, Year: 2024, Quarter: "Q4"},
		{DistrictID: a.ID, Year: 2025, Quarter: "Q4"},
		{DistrictID: b.ID, Year: 2025, Quarter: "Q4"},
	} {
		_, err := store.InsertStat(ctx, snap, "")
		require.NoError(t, err)
	}

	all, err := store.AllStats(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 2025, all[0].Year)
	assert.Equal(t, 2024, all[2].Year)

	year, err := store.AllStats(ctx, 2025)
	require.NoError(t, err)
	assert.Len(t, year, 2)
}

func TestStore_Supply(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	d := createDistrict(t, store, "Meydan")

	require.NoError(t, store.UpsertSupply(ctx, market.SupplyRecord{
		DistrictID:    d.ID,
		Year:          2025,
		UnitsPlanned:  market.Int(8500),
		MajorProjects: []string{"Meydan One", "Sobha Hartland"},
		RiskLevel:     market.SupplyRiskModerate,
	}))
	require.NoError(t, store.UpsertSupply(ctx, market.SupplyRecord{
		DistrictID:     d.ID,
		Year:           2025,
		UnitsPlanned:   market.Int(8500),
		UnitsDelivered: market.Int(3800),
		RiskLevel:      market.SupplyRiskHigh,
	}))
	require.NoError(t, store.UpsertSupply(ctx, market.SupplyRecord{
		DistrictID: d.ID,
		Year:       2024,
		RiskLevel:  market.SupplyRiskHigh,
	}))

	records, err := store.SupplyPipeline(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2024, records[0].Year)
	assert.Nil(t, records[0].UnitsPlanned)

	latest := records[1]
	assert.Equal(t, market.SupplyRiskHigh, latest.RiskLevel)
	assert.Equal(t, int64(3800), *latest.UnitsDelivered)
	assert.Equal(t, []string{"Meydan One", "Sobha Hartland"}, latest.MajorProjects)
}

func TestStore_DistrictInputsAndOpportunities(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	jvc := createDistrict(t, store, "JVC")
	south := createDistrict(t, store, "Dubai South")
	createDistrict(t, store, "No Data")

	for _, snap := range []market.Snapshot{
		{DistrictID: jvc.ID, Year: 2025, Quarter: "Q4", GrossYield: market.Float(7.8), PriceChangePercent: market.Float(15.3)},
		{DistrictID: south.ID, Year: 2025, Quarter: "Q4", GrossYield: market.Float(7.9), PriceChangePercent: market.Float(10.2)},
	} {
		_, err := store.InsertStat(ctx, snap, "")
		require.NoError(t, err)
	}
	require.NoError(t, store.UpsertSupply(ctx, market.SupplyRecord{DistrictID: jvc.ID, Year: 2025, RiskLevel: market.SupplyRiskHigh}))
	require.NoError(t, store.UpsertSupply(ctx, market.SupplyRecord{DistrictID: south.ID, Year: 2025, RiskLevel: market.SupplyRiskLow}))

	inputs, err := store.DistrictInputs(ctx)
	require.NoError(t, err)
	require.Len(t, inputs, 3)

	ranked := scoring.Rank(scoring.ForYear(inputs, 2025))
	require.Len(t, ranked, 2)
	require.NoError(t, store.SaveOpportunities(ctx, 2025, ranked))
	// Saving again replaces rather than duplicates.
	require.NoError(t, store.SaveOpportunities(ctx, 2025, ranked))

	opps, err := store.Opportunities(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, opps, 2)
	assert.Equal(t, "Dubai South", opps[0].District.Name)
	assert.Equal(t, "JVC", opps[1].District.Name)
	assert.InDelta(t, 7.8, opps[1].AttractivenessScore, 1e-9)
	assert.Equal(t, scoring.RecommendationBuy, opps[1].Recommendation)
	assert.GreaterOrEqual(t, opps[0].AttractivenessScore, opps[1].AttractivenessScore)

	empty, err := store.Opportunities(ctx, 2019)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_Favorites(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	d := createDistrict(t, store, "Palm Jumeirah")
	session := storage.NewSessionID()

	first, err := store.AddFavorite(ctx, session, d.ID)
	require.NoError(t, err)
	again, err := store.AddFavorite(ctx, session, d.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	favs, err := store.Favorites(ctx, session)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	require.NotNil(t, favs[0].District)
	assert.Equal(t, "Palm Jumeirah", favs[0].District.Name)

	others, err := store.Favorites(ctx, storage.NewSessionID())
	require.NoError(t, err)
	assert.Empty(t, others)

	require.NoError(t, store.RemoveFavorite(ctx, session, d.ID))
	require.NoError(t, store.RemoveFavorite(ctx, session, d.ID))
	favs, err = store.Favorites(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, favs)
}

func TestStore_Simulations(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	session := storage.NewSessionID()

	raw := simulator.RawInputs{
		PurchasePrice: "1500000",
		DownPayment:   "375000",
		AnnualRent:    "90000",
		HoldingYears:  "5",
		ResaleValue:   "1800000",
	}
	result, err := simulator.New(nil).SimulateRaw(raw)
	require.NoError(t, err)

	first, err := store.SaveSimulation(ctx, storage.Simulation{SessionID: session, Name: "Marina 1BR", DistrictName: "Dubai Marina", Inputs: raw, Results: result})
	require.NoError(t, err)
	second, err := store.SaveSimulation(ctx, storage.Simulation{SessionID: session, Name: "JVC studio", Inputs: raw, Results: result})
	require.NoError(t, err)
	_, err = store.SaveSimulation(ctx, storage.Simulation{SessionID: storage.NewSessionID(), Name: "other", Inputs: raw, Results: result})
	require.NoError(t, err)

	sims, err := store.Simulations(ctx, session)
	require.NoError(t, err)
	require.Len(t, sims, 2)
	assert.Equal(t, second.ID, sims[0].ID)
	assert.Equal(t, first.ID, sims[1].ID)
	assert.Equal(t, "Dubai Marina", sims[1].DistrictName)
	assert.Equal(t, raw, sims[1].Inputs)
	assert.Equal(t, result, sims[1].Results)

	require.NoError(t, store.DeleteSimulation(ctx, first.ID))
	assert.ErrorIs(t, store.DeleteSimulation(ctx, first.ID), storage.ErrNotFound)

	sims, err = store.Simulations(ctx, session)
	require.NoError(t, err)
	assert.Len(t, sims, 1)
}

func TestNewSessionIDIsUnique(t *testing.T) {
	assert.NotEqual(t, storage.NewSessionID(), storage.NewSessionID())
}

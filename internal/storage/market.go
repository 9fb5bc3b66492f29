package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dubai-invest/dubai-invest/internal/market"
	"github.com/dubai-invest/dubai-invest/internal/scoring"
	"go.uber.org/zap"
)

const statColumns = `id, district_id, year, quarter, avg_price_per_sqm, price_change_percent,
	avg_rent_new, avg_rent_renewed, gross_yield, net_yield, transaction_volume,
	transaction_value, avg_price_apartment, avg_price_villa, off_plan_share, ready_share`

func scanStat(row rowScanner) (market.Snapshot, error) {
	var (
		s                                               market.Snapshot
		price, change, rentNew, rentRenewed, gross, net sql.NullFloat64
		value, apartment, villa, offPlan, ready         sql.NullFloat64
		volume                                          sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.DistrictID, &s.Year, &s.Quarter, &price, &change,
		&rentNew, &rentRenewed, &gross, &net, &volume,
		&value, &apartment, &villa, &offPlan, &ready); err != nil {
		return market.Snapshot{}, err
	}
	s.AvgPricePerSqm = floatPtr(price)
	s.PriceChangePercent = floatPtr(change)
	s.AvgRentNew = floatPtr(rentNew)
	s.AvgRentRenewed = floatPtr(rentRenewed)
	s.GrossYield = floatPtr(gross)
	s.NetYield = floatPtr(net)
	s.TransactionVolume = intPtr(volume)
	s.TransactionValue = floatPtr(value)
	s.AvgPriceApartment = floatPtr(apartment)
	s.AvgPriceVilla = floatPtr(villa)
	s.OffPlanShare = floatPtr(offPlan)
	s.ReadyShare = floatPtr(ready)
	return s, nil
}

func collectStats(rows *sql.Rows) ([]market.Snapshot, error) {
	defer rows.Close()
	stats := []market.Snapshot{}
	for rows.Next() {
		s, err := scanStat(rows)
		if err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// InsertStat stores a snapshot unless one already exists for the same
// district, year and quarter. inserted reports whether a row was written.
func (s *Store) InsertStat(ctx context.Context, snap market.Snapshot, source string) (inserted bool, err error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO market_stats
			(district_id, year, quarter, avg_price_per_sqm, price_change_percent,
			 avg_rent_new, avg_rent_renewed, gross_yield, net_yield, transaction_volume,
			 transaction_value, avg_price_apartment, avg_price_villa, off_plan_share,
			 ready_share, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(district_id, year, quarter) DO NOTHING`,
		snap.DistrictID, snap.Year, snap.Quarter,
		nullFloat(snap.AvgPricePerSqm), nullFloat(snap.PriceChangePercent),
		nullFloat(snap.AvgRentNew), nullFloat(snap.AvgRentRenewed),
		nullFloat(snap.GrossYield), nullFloat(snap.NetYield), nullInt(snap.TransactionVolume),
		nullFloat(snap.TransactionValue), nullFloat(snap.AvgPriceApartment),
		nullFloat(snap.AvgPriceVilla), nullFloat(snap.OffPlanShare),
		nullFloat(snap.ReadyShare), nullString(source), s.now(),
	)
	if err != nil {
		return false, fmt.Errorf("storage.InsertStat: district %d %d%s: %w", snap.DistrictID, snap.Year, snap.Quarter, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage.InsertStat: rows affected: %w", err)
	}
	return n > 0, nil
}

// DistrictStats lists a district's snapshots. With year 0 every year is
// returned, newest first; otherwise only that year, by quarter.
func (s *Store) DistrictStats(ctx context.Context, districtID int64, year int) ([]market.Snapshot, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if year != 0 {
		rows, err = s.db.QueryContext(ctx, `SELECT `+statColumns+` FROM market_stats
			WHERE district_id = ? AND year = ? ORDER BY quarter`, districtID, year)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+statColumns+` FROM market_stats
			WHERE district_id = ? ORDER BY year DESC, quarter DESC`, districtID)
	}
	if err != nil {
		return nil, fmt.Errorf("storage.DistrictStats: %w", err)
	}
	stats, err := collectStats(rows)
	if err != nil {
		return nil, fmt.Errorf("storage.DistrictStats: %w", err)
	}
	return stats, nil
}

// AllStats lists every snapshot, newest year first. A non-zero year limits
// the result to that year.
func (s *Store) AllStats(ctx context.Context, year int) ([]market.Snapshot, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if year != 0 {
		rows, err = s.db.QueryContext(ctx, `SELECT `+statColumns+` FROM market_stats
			WHERE year = ? ORDER BY district_id, quarter`, year)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+statColumns+` FROM market_stats
			ORDER BY year DESC, district_id, quarter`)
	}
	if err != nil {
		return nil, fmt.Errorf("storage.AllStats: %w", err)
	}
	stats, err := collectStats(rows)
	if err != nil {
		return nil, fmt.Errorf("storage.AllStats: %w", err)
	}
	return stats, nil
}

// UpsertSupply stores a district's pipeline for a year, replacing any
// earlier record for the same year.
func (s *Store) UpsertSupply(ctx context.Context, r market.SupplyRecord) error {
	var projects interface{}
	if len(r.MajorProjects) > 0 {
		data, err := json.Marshal(r.MajorProjects)
		if err != nil {
			return fmt.Errorf("storage.UpsertSupply: encode projects: %w", err)
		}
		projects = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO supply_pipeline
			(district_id, year, units_planned, units_delivered, major_projects,
			 supply_risk_level, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(district_id, year) DO UPDATE SET
			units_planned     = excluded.units_planned,
			units_delivered   = excluded.units_delivered,
			major_projects    = COALESCE(excluded.major_projects, major_projects),
			supply_risk_level = excluded.supply_risk_level`,
		r.DistrictID, r.Year, nullInt(r.UnitsPlanned), nullInt(r.UnitsDelivered),
		projects, nullString(string(r.RiskLevel)), s.now(),
	)
	if err != nil {
		return fmt.Errorf("storage.UpsertSupply: district %d year %d: %w", r.DistrictID, r.Year, err)
	}
	return nil
}

// SupplyPipeline lists a district's supply records by year. A districtID of
// 0 lists every district's records.
func (s *Store) SupplyPipeline(ctx context.Context, districtID int64) ([]market.SupplyRecord, error) {
	query := `SELECT id, district_id, year, units_planned, units_delivered, major_projects,
		supply_risk_level FROM supply_pipeline`
	var args []interface{}
	if districtID != 0 {
		query += ` WHERE district_id = ?`
		args = append(args, districtID)
	}
	query += ` ORDER BY district_id, year`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.SupplyPipeline: %w", err)
	}
	defer rows.Close()

	records := []market.SupplyRecord{}
	for rows.Next() {
		var (
			r                  market.SupplyRecord
			planned, delivered sql.NullInt64
			projects, risk     sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.DistrictID, &r.Year, &planned, &delivered, &projects, &risk); err != nil {
			return nil, fmt.Errorf("storage.SupplyPipeline: scan: %w", err)
		}
		r.UnitsPlanned = intPtr(planned)
		r.UnitsDelivered = intPtr(delivered)
		r.RiskLevel = market.SupplyRisk(risk.String)
		if projects.Valid && projects.String != "" {
			if err := json.Unmarshal([]byte(projects.String), &r.MajorProjects); err != nil {
				s.logger.Warn("ignoring unreadable major projects",
					zap.String("op", "storage.SupplyPipeline"),
					zap.Int64("supplyID", r.ID),
					zap.Error(err),
				)
			}
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// DistrictInputs gathers every district with its snapshots and supply
// records, ready for scoring.
func (s *Store) DistrictInputs(ctx context.Context) ([]scoring.DistrictInput, error) {
	districts, err := s.Districts(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage.DistrictInputs: %w", err)
	}
	stats, err := s.AllStats(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("storage.DistrictInputs: %w", err)
	}
	supply, err := s.SupplyPipeline(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("storage.DistrictInputs: %w", err)
	}

	statsByDistrict := make(map[int64][]market.Snapshot)
	for _, st := range stats {
		statsByDistrict[st.DistrictID] = append(statsByDistrict[st.DistrictID], st)
	}
	supplyByDistrict := make(map[int64][]market.SupplyRecord)
	for _, r := range supply {
		supplyByDistrict[r.DistrictID] = append(supplyByDistrict[r.DistrictID], r)
	}

	inputs := make([]scoring.DistrictInput, 0, len(districts))
	for _, d := range districts {
		inputs = append(inputs, scoring.DistrictInput{
			District: d,
			Stats:    statsByDistrict[d.ID],
			Supply:   supplyByDistrict[d.ID],
		})
	}
	return inputs, nil
}

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/dubai-invest/dubai-invest/internal/market"
	"github.com/dubai-invest/dubai-invest/internal/scoring"
)

// Opportunity is a stored district score for a year.
type Opportunity struct {
	ID         int64 `json:"id"`
	DistrictID int64 `json:"districtId"`
	Year       int   `json:"year"`
	scoring.Score
	CreatedAt time.Time       `json:"createdAt"`
	District  market.District `json:"district"`
}

// SaveOpportunities stores one score per ranked district for year,
// replacing earlier scores for the same district and year.
func (s *Store) SaveOpportunities(ctx context.Context, year int, ranked []scoring.Ranked) error {
	if len(ranked) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveOpportunities: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO investment_opportunities
			(district_id, year, attractiveness_score, yield_score, capital_growth_score,
			 supply_risk_score, recommendation, investor_profile, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(district_id, year) DO UPDATE SET
			attractiveness_score = excluded.attractiveness_score,
			yield_score          = excluded.yield_score,
			capital_growth_score = excluded.capital_growth_score,
			supply_risk_score    = excluded.supply_risk_score,
			recommendation       = excluded.recommendation,
			investor_profile     = excluded.investor_profile,
			created_at           = excluded.created_at`)
	if err != nil {
		return fmt.Errorf("storage.SaveOpportunities: prepare: %w", err)
	}
	defer stmt.Close()

	now := s.now()
	for _, r := range ranked {
		if _, err := stmt.ExecContext(ctx,
			r.District.ID, year,
			r.Score.AttractivenessScore, r.Score.YieldScore, r.Score.CapitalGrowthScore,
			r.Score.SupplyRiskScore, r.Score.Recommendation, r.Score.InvestorProfile,
			now,
		); err != nil {
			return fmt.Errorf("storage.SaveOpportunities: district %d: %w", r.District.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveOpportunities: commit: %w", err)
	}
	return nil
}

// Opportunities lists the scores stored for year with their districts,
// most attractive first.
func (s *Store) Opportunities(ctx context.Context, year int) ([]Opportunity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.district_id, o.year, o.attractiveness_score, o.yield_score,
		       o.capital_growth_score, o.supply_risk_score, o.recommendation,
		       o.investor_profile, o.created_at,
		       d.id, d.name, d.name_ar, d.category, d.description, d.latitude, d.longitude,
		       d.dominant_typology, d.market_status, d.status_label
		FROM investment_opportunities o
		JOIN districts d ON d.id = o.district_id
		WHERE o.year = ?
		ORDER BY o.attractiveness_score DESC, d.name`, year)
	if err != nil {
		return nil, fmt.Errorf("storage.Opportunities: %w", err)
	}
	defer rows.Close()

	opportunities := []Opportunity{}
	for rows.Next() {
		var o Opportunity
		district := districtScanner{rows: rows, prefix: []interface{}{
			&o.ID, &o.DistrictID, &o.Year, &o.AttractivenessScore, &o.YieldScore,
			&o.CapitalGrowthScore, &o.SupplyRiskScore, &o.Recommendation,
			&o.InvestorProfile, &o.CreatedAt,
		}}
		d, err := scanDistrict(district)
		if err != nil {
			return nil, fmt.Errorf("storage.Opportunities: scan: %w", err)
		}
		o.District = d
		opportunities = append(opportunities, o)
	}
	return opportunities, rows.Err()
}

// districtScanner scans leading columns into prefix and hands the district
// columns that follow to scanDistrict.
type districtScanner struct {
	rows   rowScanner
	prefix []interface{}
}

func (d districtScanner) Scan(dest ...interface{}) error {
	return d.rows.Scan(append(append([]interface{}{}, d.prefix...), dest...)...)
}

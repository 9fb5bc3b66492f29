package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dubai-invest/dubai-invest/internal/market"
)

const districtColumns = `id, name, name_ar, category, description, latitude, longitude,
	dominant_typology, market_status, status_label`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDistrict(row rowScanner) (market.District, error) {
	var (
		d                             market.District
		nameAr, description, typology sql.NullString
		latitude, longitude           sql.NullFloat64
	)
	if err := row.Scan(&d.ID, &d.Name, &nameAr, &d.Category, &description, &latitude, &longitude,
		&typology, &d.MarketStatus, &d.StatusLabel); err != nil {
		return market.District{}, err
	}
	d.NameAr = nameAr.String
	d.Description = description.String
	d.DominantTypology = typology.String
	d.Latitude = floatPtr(latitude)
	d.Longitude = floatPtr(longitude)
	return d, nil
}

// CreateDistrict inserts a district and returns it with its ID.
func (s *Store) CreateDistrict(ctx context.Context, d market.District) (market.District, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO districts
			(name, name_ar, category, description, latitude, longitude,
			 dominant_typology, market_status, status_label, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Name, nullString(d.NameAr), d.Category, nullString(d.Description),
		nullFloat(d.Latitude), nullFloat(d.Longitude), nullString(d.DominantTypology),
		d.MarketStatus, d.StatusLabel, s.now(),
	)
	if err != nil {
		return market.District{}, fmt.Errorf("storage.CreateDistrict: insert %q: %w", d.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return market.District{}, fmt.Errorf("storage.CreateDistrict: last insert id: %w", err)
	}
	d.ID = id
	return d, nil
}

// District returns the district with the given ID.
func (s *Store) District(ctx context.Context, id int64) (market.District, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+districtColumns+` FROM districts WHERE id = ?`, id)
	d, err := scanDistrict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return market.District{}, fmt.Errorf("storage.District: id %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return market.District{}, fmt.Errorf("storage.District: %w", err)
	}
	return d, nil
}

// DistrictByName returns the district with exactly this name.
func (s *Store) DistrictByName(ctx context.Context, name string) (market.District, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+districtColumns+` FROM districts WHERE name = ?`, name)
	d, err := scanDistrict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return market.District{}, fmt.Errorf("storage.DistrictByName: %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return market.District{}, fmt.Errorf("storage.DistrictByName: %w", err)
	}
	return d, nil
}

// Districts lists every district ordered by name.
func (s *Store) Districts(ctx context.Context) ([]market.District, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+districtColumns+` FROM districts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("storage.Districts: %w", err)
	}
	defer rows.Close()

	districts := []market.District{}
	for rows.Next() {
		d, err := scanDistrict(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.Districts: scan: %w", err)
		}
		districts = append(districts, d)
	}
	return districts, rows.Err()
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dubai-invest/dubai-invest/internal/market"
	"github.com/dubai-invest/dubai-invest/internal/simulator"
	"github.com/google/uuid"
)

// SessionID identifies an anonymous client session. It is opaque: the
// store never interprets it.
type SessionID string

// NewSessionID issues a fresh random session ID.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// Favorite is a district bookmarked by a session. District is nil when the
// district no longer exists.
type Favorite struct {
	ID         int64            `json:"id"`
	SessionID  SessionID        `json:"sessionId"`
	DistrictID int64            `json:"districtId"`
	CreatedAt  time.Time        `json:"createdAt"`
	District   *market.District `json:"district"`
}

// AddFavorite bookmarks a district for a session. Adding an existing
// favorite returns it unchanged.
func (s *Store) AddFavorite(ctx context.Context, session SessionID, districtID int64) (Favorite, error) {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (session_id, district_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id, district_id) DO NOTHING`,
		string(session), districtID, s.now(),
	); err != nil {
		return Favorite{}, fmt.Errorf("storage.AddFavorite: %w", err)
	}

	f := Favorite{SessionID: session, DistrictID: districtID}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM favorites WHERE session_id = ? AND district_id = ?`,
		string(session), districtID,
	).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return Favorite{}, fmt.Errorf("storage.AddFavorite: reload: %w", err)
	}
	return f, nil
}

// RemoveFavorite removes a bookmark. Removing a missing favorite is not an
// error.
func (s *Store) RemoveFavorite(ctx context.Context, session SessionID, districtID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE session_id = ? AND district_id = ?`,
		string(session), districtID,
	); err != nil {
		return fmt.Errorf("storage.RemoveFavorite: %w", err)
	}
	return nil
}

// Favorites lists a session's bookmarks, newest first.
func (s *Store) Favorites(ctx context.Context, session SessionID) ([]Favorite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.district_id, f.created_at, d.id IS NOT NULL,
		       COALESCE(d.id, 0), COALESCE(d.name, ''), d.name_ar, COALESCE(d.category, ''),
		       d.description, d.latitude, d.longitude, d.dominant_typology,
		       COALESCE(d.market_status, ''), COALESCE(d.status_label, '')
		FROM favorites f
		LEFT JOIN districts d ON d.id = f.district_id
		WHERE f.session_id = ?
		ORDER BY f.created_at DESC, f.id DESC`, string(session))
	if err != nil {
		return nil, fmt.Errorf("storage.Favorites: %w", err)
	}
	defer rows.Close()

	favorites := []Favorite{}
	for rows.Next() {
		var (
			f      = Favorite{SessionID: session}
			exists bool
		)
		d, err := scanDistrict(districtScanner{rows: rows, prefix: []interface{}{
			&f.ID, &f.DistrictID, &f.CreatedAt, &exists,
		}})
		if err != nil {
			return nil, fmt.Errorf("storage.Favorites: scan: %w", err)
		}
		if exists {
			f.District = &d
		}
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}

// Simulation is a saved simulation run. Results are recomputed from Inputs
// by the caller before saving.
type Simulation struct {
	ID           int64               `json:"id"`
	SessionID    SessionID           `json:"sessionId"`
	Name         string              `json:"name"`
	DistrictName string              `json:"districtName,omitempty"`
	Inputs       simulator.RawInputs `json:"inputs"`
	Results      *simulator.Result   `json:"results"`
	CreatedAt    time.Time           `json:"createdAt"`
}

// SaveSimulation stores a simulation and returns it with its ID and
// creation time.
func (s *Store) SaveSimulation(ctx context.Context, sim Simulation) (Simulation, error) {
	inputs, err := json.Marshal(sim.Inputs)
	if err != nil {
		return Simulation{}, fmt.Errorf("storage.SaveSimulation: encode inputs: %w", err)
	}
	results, err := json.Marshal(sim.Results)
	if err != nil {
		return Simulation{}, fmt.Errorf("storage.SaveSimulation: encode results: %w", err)
	}

	sim.CreatedAt = s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO simulations (session_id, name, district_name, inputs, results, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(sim.SessionID), sim.Name, nullString(sim.DistrictName),
		string(inputs), string(results), sim.CreatedAt,
	)
	if err != nil {
		return Simulation{}, fmt.Errorf("storage.SaveSimulation: insert: %w", err)
	}
	if sim.ID, err = res.LastInsertId(); err != nil {
		return Simulation{}, fmt.Errorf("storage.SaveSimulation: last insert id: %w", err)
	}
	return sim, nil
}

// Simulations lists a session's saved simulations, newest first.
func (s *Store) Simulations(ctx context.Context, session SessionID) ([]Simulation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, district_name, inputs, results, created_at
		FROM simulations
		WHERE session_id = ?
		ORDER BY created_at DESC, id DESC`, string(session))
	if err != nil {
		return nil, fmt.Errorf("storage.Simulations: %w", err)
	}
	defer rows.Close()

	sims := []Simulation{}
	for rows.Next() {
		var (
			sim             = Simulation{SessionID: session}
			districtName    sql.NullString
			inputs, results string
		)
		if err := rows.Scan(&sim.ID, &sim.Name, &districtName, &inputs, &results, &sim.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage.Simulations: scan: %w", err)
		}
		sim.DistrictName = districtName.String
		if err := json.Unmarshal([]byte(inputs), &sim.Inputs); err != nil {
			return nil, fmt.Errorf("storage.Simulations: decode inputs of %d: %w", sim.ID, err)
		}
		if err := json.Unmarshal([]byte(results), &sim.Results); err != nil {
			return nil, fmt.Errorf("storage.Simulations: decode results of %d: %w", sim.ID, err)
		}
		sims = append(sims, sim)
	}
	return sims, rows.Err()
}

// DeleteSimulation removes a saved simulation.
func (s *Store) DeleteSimulation(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM simulations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("storage.DeleteSimulation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage.DeleteSimulation: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("storage.DeleteSimulation: id %d: %w", id, ErrNotFound)
	}
	return nil
}

// Package storage persists districts, market statistics, supply pipelines,
// opportunity scores, favorites and saved simulations in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS districts (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    name              TEXT NOT NULL UNIQUE,
    name_ar           TEXT,
    category          TEXT NOT NULL,
    description       TEXT,
    latitude          REAL,
    longitude         REAL,
    dominant_typology TEXT,
    market_status     TEXT NOT NULL,
    status_label      TEXT NOT NULL,
    created_at        DATETIME NOT NULL
);

-- One row per district and period; the importer never overwrites.
CREATE TABLE IF NOT EXISTS market_stats (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    district_id          INTEGER NOT NULL REFERENCES districts(id),
    year                 INTEGER NOT NULL,
    quarter              TEXT    NOT NULL DEFAULT '',
    avg_price_per_sqm    REAL,
    price_change_percent REAL,
    avg_rent_new         REAL,
    avg_rent_renewed     REAL,
    gross_yield          REAL,
    net_yield            REAL,
    transaction_volume   INTEGER,
    transaction_value    REAL,
    avg_price_apartment  REAL,
    avg_price_villa      REAL,
    off_plan_share       REAL,
    ready_share          REAL,
    source               TEXT,
    created_at           DATETIME NOT NULL,
    UNIQUE (district_id, year, quarter)
);

CREATE TABLE IF NOT EXISTS supply_pipeline (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    district_id       INTEGER NOT NULL REFERENCES districts(id),
    year              INTEGER NOT NULL,
    units_planned     INTEGER,
    units_delivered   INTEGER,
    major_projects    TEXT,
    supply_risk_level TEXT,
    created_at        DATETIME NOT NULL,
    UNIQUE (district_id, year)
);

CREATE TABLE IF NOT EXISTS investment_opportunities (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    district_id          INTEGER NOT NULL REFERENCES districts(id),
    year                 INTEGER NOT NULL,
    attractiveness_score REAL    NOT NULL,
    yield_score          REAL    NOT NULL DEFAULT 0,
    capital_growth_score REAL    NOT NULL DEFAULT 0,
    supply_risk_score    REAL    NOT NULL DEFAULT 0,
    recommendation       TEXT    NOT NULL DEFAULT '',
    investor_profile     TEXT    NOT NULL DEFAULT '',
    created_at           DATETIME NOT NULL,
    UNIQUE (district_id, year)
);

CREATE TABLE IF NOT EXISTS favorites (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  TEXT    NOT NULL,
    district_id INTEGER NOT NULL REFERENCES districts(id),
    created_at  DATETIME NOT NULL,
    UNIQUE (session_id, district_id)
);

CREATE TABLE IF NOT EXISTS simulations (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id    TEXT NOT NULL,
    name          TEXT NOT NULL,
    district_name TEXT,
    inputs        TEXT NOT NULL,
    results       TEXT NOT NULL,
    created_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stats_year      ON market_stats(year);
CREATE INDEX IF NOT EXISTS idx_opp_year_score  ON investment_opportunities(year, attractiveness_score DESC);
CREATE INDEX IF NOT EXISTS idx_fav_session     ON favorites(session_id);
CREATE INDEX IF NOT EXISTS idx_sim_session     ON simulations(session_id, created_at DESC);
`

// Store is the SQLite-backed repository. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.Open: open %q: %w", path, err)
	}
	// SQLite is single-writer, and an in-memory database lives per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage.Open: apply schema: %w", err)
	}

	logger.Debug("storage opened", zap.String("op", "storage.Open"), zap.String("path", path))
	return &Store{db: db, logger: logger, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func nullFloat(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullInt(p *int64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

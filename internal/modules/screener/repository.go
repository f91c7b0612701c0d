package screener

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Schema for the equities table in universe.db. sort_order preserves the
// provider's snapshot order, which is the canonical input order of the filter
// pipeline (mode "none" and tie-breaks depend on it).
const Schema = `
CREATE TABLE IF NOT EXISTS equities (
	ticker TEXT PRIMARY KEY,
	company_name TEXT NOT NULL,
	sector TEXT,
	current_price REAL NOT NULL DEFAULT 0,
	ceiling_conservative REAL,
	ceiling_aggressive REAL,
	average_yield_percent REAL,
	average_dividend REAL,
	last_price_update INTEGER,
	sort_order INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_equities_sort ON equities(sort_order);
`

// equitiesColumns avoids SELECT *, which breaks silently on schema changes.
const equitiesColumns = `ticker, company_name, sector, current_price,
ceiling_conservative, ceiling_aggressive, average_yield_percent,
average_dividend, last_price_update`

// Repository handles equity snapshot database operations. The table holds the
// latest provider snapshot; it is replaced wholesale on each refresh so a
// read never observes a half-applied snapshot.
type Repository struct {
	db  *sql.DB // universe.db - equities table
	log zerolog.Logger
}

// NewRepository creates a new equity repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "equities").Logger(),
	}
}

// InitSchema creates the equities table if it does not exist
func (r *Repository) InitSchema() error {
	if _, err := r.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to initialize equities schema: %w", err)
	}
	return nil
}

// GetAll returns the full equity collection in provider snapshot order.
func (r *Repository) GetAll() ([]Equity, error) {
	query := "SELECT " + equitiesColumns + " FROM equities ORDER BY sort_order ASC"
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query equities: %w", err)
	}
	defer rows.Close()

	var equities []Equity
	for rows.Next() {
		e, err := scanEquity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan equity: %w", err)
		}
		equities = append(equities, e)
	}
	return equities, rows.Err()
}

// GetByTicker returns one equity, or nil when the ticker is unknown.
func (r *Repository) GetByTicker(ticker string) (*Equity, error) {
	query := "SELECT " + equitiesColumns + " FROM equities WHERE ticker = ?"
	rows, err := r.db.Query(query, strings.ToUpper(strings.TrimSpace(ticker)))
	if err != nil {
		return nil, fmt.Errorf("failed to query equity by ticker: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil // Equity not found
	}
	e, err := scanEquity(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan equity: %w", err)
	}
	return &e, nil
}

// Sectors returns the distinct non-empty sectors present in the snapshot.
func (r *Repository) Sectors() ([]string, error) {
	rows, err := r.db.Query(
		"SELECT DISTINCT sector FROM equities WHERE sector IS NOT NULL AND sector != '' ORDER BY sector ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query sectors: %w", err)
	}
	defer rows.Close()

	var sectors []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan sector: %w", err)
		}
		sectors = append(sectors, s)
	}
	return sectors, rows.Err()
}

// ReplaceAll atomically replaces the stored snapshot, preserving the order of
// the given slice as the canonical input order.
func (r *Repository) ReplaceAll(equities []Equity) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM equities"); err != nil {
		return fmt.Errorf("failed to clear equities: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO equities (ticker, company_name, sector, current_price,
			ceiling_conservative, ceiling_aggressive, average_yield_percent,
			average_dividend, last_price_update, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range equities {
		var lastUpdate *int64
		if e.LastPriceUpdate != nil {
			ts := e.LastPriceUpdate.Unix()
			lastUpdate = &ts
		}
		if _, err := stmt.Exec(
			strings.ToUpper(strings.TrimSpace(e.Ticker)),
			e.CompanyName,
			nullIfEmpty(e.Sector),
			e.CurrentPrice,
			e.CeilingConservative,
			e.CeilingAggressive,
			e.AverageYieldPercent,
			e.AverageDividend,
			lastUpdate,
			i,
		); err != nil {
			return fmt.Errorf("failed to insert equity %s: %w", e.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit equities snapshot: %w", err)
	}

	r.log.Debug().Int("count", len(equities)).Msg("Equity snapshot replaced")
	return nil
}

func scanEquity(rows *sql.Rows) (Equity, error) {
	var e Equity
	var sector sql.NullString
	var lastUpdate sql.NullInt64
	err := rows.Scan(
		&e.Ticker,
		&e.CompanyName,
		&sector,
		&e.CurrentPrice,
		&e.CeilingConservative,
		&e.CeilingAggressive,
		&e.AverageYieldPercent,
		&e.AverageDividend,
		&lastUpdate,
	)
	if err != nil {
		return Equity{}, err
	}
	if sector.Valid {
		e.Sector = sector.String
	}
	if lastUpdate.Valid {
		t := time.Unix(lastUpdate.Int64, 0).UTC()
		e.LastPriceUpdate = &t
	}
	return e, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

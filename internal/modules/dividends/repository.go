package dividends

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Schema for the dividends table in universe.db.
const Schema = `
CREATE TABLE IF NOT EXISTS dividends (
	ticker TEXT NOT NULL,
	year INTEGER NOT NULL,
	amount REAL NOT NULL,
	PRIMARY KEY (ticker, year)
);
CREATE INDEX IF NOT EXISTS idx_dividends_ticker ON dividends(ticker);
`

// Repository handles dividend ledger database operations.
// The ledger is a cached copy of the provider's per-ticker {year, amount}
// series, replaced wholesale on each sync.
type Repository struct {
	db  *sql.DB // universe.db - dividends table
	log zerolog.Logger
}

// NewRepository creates a new dividend repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "dividends").Logger(),
	}
}

// InitSchema creates the dividends table if it does not exist
func (r *Repository) InitSchema() error {
	if _, err := r.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to initialize dividends schema: %w", err)
	}
	return nil
}

// GetHistory returns the full dividend history for a ticker, oldest year
// first (chart order). A ticker with no history returns an empty slice.
func (r *Repository) GetHistory(ticker string) ([]Entry, error) {
	rows, err := r.db.Query(
		"SELECT year, amount FROM dividends WHERE ticker = ? ORDER BY year ASC",
		normalizeTicker(ticker),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query dividend history: %w", err)
	}
	defer rows.Close()

	var history []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Year, &e.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan dividend entry: %w", err)
		}
		history = append(history, e)
	}
	return history, rows.Err()
}

// ReplaceHistory atomically replaces the stored history for a ticker with the
// given entries.
func (r *Repository) ReplaceHistory(ticker string, entries []Entry) error {
	ticker = normalizeTicker(ticker)

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM dividends WHERE ticker = ?", ticker); err != nil {
		return fmt.Errorf("failed to clear dividend history: %w", err)
	}

	for _, e := range entries {
		if _, err := tx.Exec(
			"INSERT INTO dividends (ticker, year, amount) VALUES (?, ?, ?)",
			ticker, e.Year, e.Amount,
		); err != nil {
			return fmt.Errorf("failed to insert dividend entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dividend history: %w", err)
	}

	r.log.Debug().Str("ticker", ticker).Int("entries", len(entries)).Msg("Dividend history replaced")
	return nil
}

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

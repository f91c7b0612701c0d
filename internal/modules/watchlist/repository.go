// Package watchlist persists each user's bookmarked tickers and exposes the
// membership set the filter pipeline consults.
package watchlist

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Schema for the watchlists table in users.db.
const Schema = `
CREATE TABLE IF NOT EXISTS watchlists (
	user_id TEXT NOT NULL,
	ticker TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, ticker)
);
CREATE INDEX IF NOT EXISTS idx_watchlists_user ON watchlists(user_id);
`

// Repository handles watchlist database operations, keyed by the opaque
// authenticated-user identity.
type Repository struct {
	db  *sql.DB // users.db - watchlists table
	log zerolog.Logger
}

// NewRepository creates a new watchlist repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "watchlist").Logger(),
	}
}

// InitSchema creates the watchlists table if it does not exist
func (r *Repository) InitSchema() error {
	if _, err := r.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to initialize watchlist schema: %w", err)
	}
	return nil
}

// List returns the user's watchlist tickers in insertion order.
func (r *Repository) List(userID string) ([]string, error) {
	rows, err := r.db.Query(
		"SELECT ticker FROM watchlists WHERE user_id = ? ORDER BY created_at ASC, ticker ASC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

// Add inserts a ticker into the user's watchlist. Adding an existing ticker
// is a no-op (idempotent upsert).
func (r *Repository) Add(userID, ticker string) error {
	_, err := r.db.Exec(
		"INSERT INTO watchlists (user_id, ticker, created_at) VALUES (?, ?, ?) ON CONFLICT(user_id, ticker) DO NOTHING",
		userID, normalizeTicker(ticker), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to add watchlist ticker: %w", err)
	}
	return nil
}

// Remove deletes a ticker from the user's watchlist. Removing an absent
// ticker is a no-op.
func (r *Repository) Remove(userID, ticker string) error {
	_, err := r.db.Exec(
		"DELETE FROM watchlists WHERE user_id = ? AND ticker = ?",
		userID, normalizeTicker(ticker),
	)
	if err != nil {
		return fmt.Errorf("failed to remove watchlist ticker: %w", err)
	}
	return nil
}

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

package marketdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/fatiainvest/screener/internal/modules/screener"
)

// CacheSchema for the snapshot cache table in cache.db.
const CacheSchema = `
CREATE TABLE IF NOT EXISTS snapshot_cache (
	key TEXT PRIMARY KEY,
	payload BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
`

const equitySnapshotKey = "equities"

// SnapshotCache persists the last good provider snapshot so the service can
// keep serving when the provider is down. Payloads are msgpack-encoded: the
// snapshot is written on every refresh cycle and msgpack keeps that cheap.
type SnapshotCache struct {
	db  *sql.DB // cache.db - snapshot_cache table
	log zerolog.Logger
}

// NewSnapshotCache creates a new snapshot cache
func NewSnapshotCache(db *sql.DB, log zerolog.Logger) *SnapshotCache {
	return &SnapshotCache{
		db:  db,
		log: log.With().Str("repo", "snapshot_cache").Logger(),
	}
}

// InitSchema creates the cache table if it does not exist
func (c *SnapshotCache) InitSchema() error {
	if _, err := c.db.Exec(CacheSchema); err != nil {
		return fmt.Errorf("failed to initialize snapshot cache schema: %w", err)
	}
	return nil
}

// PutSnapshot stores the equity snapshot, replacing any previous one.
func (c *SnapshotCache) PutSnapshot(equities []screener.Equity) error {
	payload, err := msgpack.Marshal(equities)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = c.db.Exec(
		"INSERT INTO snapshot_cache (key, payload, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at",
		equitySnapshotKey, payload, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the cached equity snapshot, or nil when none exists.
func (c *SnapshotCache) GetSnapshot() ([]screener.Equity, error) {
	var payload []byte
	err := c.db.QueryRow(
		"SELECT payload FROM snapshot_cache WHERE key = ?", equitySnapshotKey,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var equities []screener.Equity
	if err := msgpack.Unmarshal(payload, &equities); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return equities, nil
}

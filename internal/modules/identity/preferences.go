package identity

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fatiainvest/screener/internal/modules/valuation"
)

// investorProfileKey is the preference key holding the user's risk profile.
const investorProfileKey = "investor_profile"

// PreferenceRepository handles per-user preference storage. Preferences are
// key-value pairs; missing keys fall back to defaults at read time.
type PreferenceRepository struct {
	db  *sql.DB // users.db - preferences table
	log zerolog.Logger
}

// NewPreferenceRepository creates a new preference repository
func NewPreferenceRepository(db *sql.DB, log zerolog.Logger) *PreferenceRepository {
	return &PreferenceRepository{
		db:  db,
		log: log.With().Str("repo", "preferences").Logger(),
	}
}

// Get retrieves a preference value by key.
// Returns nil if the preference doesn't exist (not an error).
func (r *PreferenceRepository) Get(userID, key string) (*string, error) {
	var value string
	err := r.db.QueryRow(
		"SELECT value FROM preferences WHERE user_id = ? AND key = ?", userID, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preference %s: %w", key, err)
	}
	return &value, nil
}

// Set stores a preference value.
func (r *PreferenceRepository) Set(userID, key, value string) error {
	_, err := r.db.Exec(
		"INSERT INTO preferences (user_id, key, value, updated_at) VALUES (?, ?, ?, ?) ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at",
		userID, key, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to set preference %s: %w", key, err)
	}
	return nil
}

// InvestorProfile returns the user's persisted risk profile. An anonymous
// session (empty user id) or an absent preference yields the aggressive
// default; unknown stored values parse to the default as well.
func (r *PreferenceRepository) InvestorProfile(userID string) (valuation.Profile, error) {
	if userID == "" {
		return valuation.ProfileAggressive, nil
	}
	value, err := r.Get(userID, investorProfileKey)
	if err != nil {
		return valuation.ProfileAggressive, err
	}
	if value == nil {
		return valuation.ProfileAggressive, nil
	}
	return valuation.ParseProfile(*value), nil
}

// SetInvestorProfile persists an explicit profile change. Only user action
// reaches this; the profile never changes as a side effect of filtering.
func (r *PreferenceRepository) SetInvestorProfile(userID string, p valuation.Profile) error {
	if userID == "" {
		return ErrAuthRequired
	}
	return r.Set(userID, investorProfileKey, p.String())
}

package identity

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Schema for the sessions and preferences tables in users.db.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
CREATE TABLE IF NOT EXISTS preferences (
	user_id TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, key)
);
`

// SessionRepository resolves opaque bearer tokens to user identities. Tokens
// are written by the external auth provider into the shared store; this side
// only reads and expires them.
type SessionRepository struct {
	db  *sql.DB // users.db - sessions table
	log zerolog.Logger
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *sql.DB, log zerolog.Logger) *SessionRepository {
	return &SessionRepository{
		db:  db,
		log: log.With().Str("repo", "sessions").Logger(),
	}
}

// InitSchema creates the identity tables if they do not exist
func (r *SessionRepository) InitSchema() error {
	if _, err := r.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to initialize identity schema: %w", err)
	}
	return nil
}

// Resolve returns the user id for a bearer token, or "" when the token is
// unknown or expired. An absent identity is a normal state, not an error.
func (r *SessionRepository) Resolve(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", nil
	}

	var userID string
	var expiresAt int64
	err := r.db.QueryRow(
		"SELECT user_id, expires_at FROM sessions WHERE token = ?", token,
	).Scan(&userID, &expiresAt)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve session token: %w", err)
	}

	if time.Now().Unix() >= expiresAt {
		return "", nil
	}
	return userID, nil
}

// Put stores a session token. Used by tests and by the auth provider's sync
// path when it shares this database.
func (r *SessionRepository) Put(token, userID string, expiresAt time.Time) error {
	_, err := r.db.Exec(
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?) ON CONFLICT(token) DO UPDATE SET user_id = excluded.user_id, expires_at = excluded.expires_at",
		token, userID, expiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// DeleteExpired removes expired sessions. Called by the maintenance job.
func (r *SessionRepository) DeleteExpired() (int64, error) {
	res, err := r.db.Exec("DELETE FROM sessions WHERE expires_at < ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

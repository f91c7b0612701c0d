package identity

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	userIDKey     contextKey = "identity.userID"
	sessionKeyKey contextKey = "identity.sessionKey"
)

// Middleware resolves the request's bearer token into a user identity and a
// session key. Anonymous requests are allowed through with an empty user id;
// endpoints that need an identity check for it explicitly.
//
// The session key scopes the screening state (search term, filter mode,
// focus). Authenticated requests use the token so a user keeps one session
// across tabs; anonymous requests use the client-supplied X-Session-Key
// header, or a fresh random key when none is sent.
func Middleware(sessions *SessionRepository, log zerolog.Logger) func(http.Handler) http.Handler {
	mlog := log.With().Str("middleware", "identity").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)

			userID := ""
			if token != "" {
				resolved, err := sessions.Resolve(token)
				if err != nil {
					mlog.Error().Err(err).Msg("Failed to resolve session token")
				} else {
					userID = resolved
				}
			}

			sessionKey := token
			if sessionKey == "" {
				sessionKey = strings.TrimSpace(r.Header.Get("X-Session-Key"))
			}
			if sessionKey == "" {
				sessionKey = uuid.NewString()
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			ctx = context.WithValue(ctx, sessionKeyKey, sessionKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user id from the request context, or ""
// for an anonymous session.
func UserID(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// SessionKey returns the screening-session key from the request context.
func SessionKey(ctx context.Context) string {
	if v, ok := ctx.Value(sessionKeyKey).(string); ok {
		return v
	}
	return ""
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

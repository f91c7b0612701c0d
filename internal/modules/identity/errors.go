// Package identity resolves opaque session tokens to user identities and
// stores per-user preferences. Sessions are consumed here, never issued:
// login and registration belong to the external auth provider.
package identity

import "errors"

// ErrAuthRequired signals that an operation needs an authenticated identity.
// Callers surface an authentication prompt; the operation itself is a no-op.
var ErrAuthRequired = errors.New("authentication required")

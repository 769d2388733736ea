package middleware

import (
	"context"

	swad "github.com/MrEthical07/swad"
	"github.com/MrEthical07/swad/session"
)

type sessionContextKey struct{}
type authenticatorContextKey struct{}

// SessionFromContext returns the session attached by [Sessions].
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(*session.Session)
	return sess, ok && sess != nil
}

// AuthenticatorFromContext returns the authenticator attached by a guard.
func AuthenticatorFromContext(ctx context.Context) (*swad.Authenticator, bool) {
	auth, ok := ctx.Value(authenticatorContextKey{}).(*swad.Authenticator)
	return auth, ok && auth != nil
}

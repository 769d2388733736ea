package middleware

import (
	"context"
	"net/http"

	swad "github.com/MrEthical07/swad"
	"github.com/MrEthical07/swad/jwt"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity verified by [RequireAssertion].
func IdentityFromContext(ctx context.Context) (jwt.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(jwt.Identity)
	return id, ok
}

// RequireAssertion admits requests carrying a valid X-SWAD-Assertion token.
// It needs no session and suits upstream services behind the gateway.
// When realm is not empty the asserted realm must match.
func RequireAssertion(gw *swad.Gateway, realm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(HeaderAssertion)
			if token == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			id, err := gw.VerifyAssertion(token)
			if err != nil || (realm != "" && id.Realm != realm) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), identityContextKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package middleware

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	swad "github.com/MrEthical07/swad"
)

// Session properties handing a guarded request over to the login handler.
const (
	PropAuthRealm    = "auth_realm"
	PropAuthRedirect = "auth_rdr"
)

// GuardOptions tunes [Guard].
type GuardOptions struct {
	// Realm fixes the realm. When empty it is taken from the request.
	Realm string
	// Silent enables silent login from other realms of the session.
	Silent bool
}

// LoginLocation returns the login URL carrying realm and redirect target.
func LoginLocation(route, realm, rdr string) string {
	q := url.Values{}
	if realm != "" {
		q.Set("realm", realm)
	}
	if rdr != "" {
		q.Set("rdr", rdr)
	}
	if len(q) == 0 {
		return route
	}
	return route + "?" + q.Encode()
}

// Guard lets requests through only when the session has a user in the
// realm. Anonymous requests are answered 403 with a Location header
// pointing at the login route, and the realm and redirect target are kept
// in the session for the login handler. It must run inside [Sessions].
func Guard(gw *swad.Gateway, opts GuardOptions) func(http.Handler) http.Handler {
	loginRoute := gw.Config().Server.LoginRoute
	logger := gw.Logger().Named("http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			realm := opts.Realm
			if realm == "" {
				realm = Realm(r)
			}
			auth := gw.Authenticator(sess, realm)

			authenticated := false
			if opts.Silent {
				authenticated = auth.SilentLogin(r.Context())
			} else {
				_, authenticated = auth.User()
			}
			if !authenticated {
				rdr := Redirect(r)
				if rdr == "" {
					rdr = r.URL.RequestURI()
				}
				sess.Set(PropAuthRealm, auth.Realm(), nil)
				sess.Set(PropAuthRedirect, rdr, nil)
				ua := r.UserAgent()
				if ua == "" {
					ua = "<unknown>"
				}
				logger.Info("requesting login",
					zap.String("realm", auth.Realm()),
					zap.String("rdr", rdr),
					zap.String("user_agent", ua),
					zap.String("request_id", swad.RequestIDFromContext(r.Context())),
				)
				w.Header().Set("Location", LoginLocation(LoginRoute(r, loginRoute), realm, rdr))
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), authenticatorContextKey{}, auth)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser guards with silent login enabled and the realm taken from
// the request.
func RequireUser(gw *swad.Gateway) func(http.Handler) http.Handler {
	return Guard(gw, GuardOptions{Silent: true})
}

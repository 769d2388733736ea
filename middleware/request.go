package middleware

import "net/http"

// Header names understood by the gateway. A reverse proxy doing
// forward-auth sets them on the subrequest.
const (
	HeaderRealm      = "X-SWAD-Realm"
	HeaderRedirect   = "X-SWAD-Rdr"
	HeaderLoginRoute = "X-SWAD-Login"
	HeaderUser       = "X-SWAD-User"
	HeaderAssertion  = "X-SWAD-Assertion"
	HeaderRequestID  = "X-Request-ID"
)

// Realm returns the realm requested by the X-SWAD-Realm header or the realm
// query parameter. Empty means the default realm.
func Realm(r *http.Request) string {
	if v := r.Header.Get(HeaderRealm); v != "" {
		return v
	}
	return r.URL.Query().Get("realm")
}

// Redirect returns the post-login redirect target from the X-SWAD-Rdr
// header or the rdr query parameter.
func Redirect(r *http.Request) string {
	if v := r.Header.Get(HeaderRedirect); v != "" {
		return v
	}
	return r.URL.Query().Get("rdr")
}

// LoginRoute returns the login URL, which the X-SWAD-Login header overrides.
func LoginRoute(r *http.Request, configured string) string {
	if v := r.Header.Get(HeaderLoginRoute); v != "" {
		return v
	}
	return configured
}

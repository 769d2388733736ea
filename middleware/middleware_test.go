package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	swad "github.com/MrEthical07/swad"
	"github.com/MrEthical07/swad/session"
)

func TestClientAddr(t *testing.T) {
	cases := []struct {
		name    string
		remote  string
		xff     []string
		proxies int
		want    string
	}{
		{"peer only", "192.0.2.1:1234", nil, 0, "192.0.2.1"},
		{"xff ignored without proxies", "192.0.2.1:1234", []string{"203.0.113.9"}, 0, "192.0.2.1"},
		{"one proxy", "10.0.0.1:80", []string{"203.0.113.9"}, 1, "203.0.113.9"},
		{"one proxy spoofed prefix", "10.0.0.1:80", []string{"6.6.6.6, 203.0.113.9"}, 1, "203.0.113.9"},
		{"two proxies", "10.0.0.1:80", []string{"203.0.113.9, 10.0.0.2"}, 2, "203.0.113.9"},
		{"split headers", "10.0.0.1:80", []string{"203.0.113.9", "10.0.0.2"}, 2, "203.0.113.9"},
		{"short chain", "10.0.0.1:80", nil, 3, "10.0.0.1"},
		{"ipv6 peer", "[2001:db8::1]:443", nil, 0, "2001:db8::1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			for _, v := range tc.xff {
				r.Header.Add("X-Forwarded-For", v)
			}
			assert.Equal(t, tc.want, ClientAddr(r, tc.proxies))
		})
	}
}

func TestRequestParameters(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?realm=q&rdr=/from-query", nil)
	assert.Equal(t, "q", Realm(r))
	assert.Equal(t, "/from-query", Redirect(r))
	assert.Equal(t, "/login", LoginRoute(r, "/login"))

	r.Header.Set(HeaderRealm, "h")
	r.Header.Set(HeaderRedirect, "/from-header")
	r.Header.Set(HeaderLoginRoute, "/auth/login")
	assert.Equal(t, "h", Realm(r))
	assert.Equal(t, "/from-header", Redirect(r))
	assert.Equal(t, "/auth/login", LoginRoute(r, "/login"))
}

func TestLoginLocation(t *testing.T) {
	assert.Equal(t, "/login", LoginLocation("/login", "", ""))
	loc, err := url.Parse(LoginLocation("/login", "admin", "/app?x=1"))
	require.NoError(t, err)
	assert.Equal(t, "/login", loc.Path)
	assert.Equal(t, "admin", loc.Query().Get("realm"))
	assert.Equal(t, "/app?x=1", loc.Query().Get("rdr"))
}

func TestSessionsCreatesAndReusesSession(t *testing.T) {
	gw, _ := newGateway(t, testConfig())

	var seen []string
	h := Sessions(gw)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		require.True(t, ok)
		seen = append(seen, sess.ID())
		assert.Equal(t, "198.51.100.7", swad.ClientAddrFromContext(r.Context()))
		assert.NotEmpty(t, swad.RequestIDFromContext(r.Context()))
	}))

	rec := do(h, httptest.NewRequest(http.MethodGet, "/", nil), "198.51.100.7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.False(t, cookie.Secure)

	rec = do(h, httptest.NewRequest(http.MethodGet, "/", nil), "198.51.100.7", []*http.Cookie{cookie})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
	require.Len(t, seen, 2)
	assert.Equal(t, seen[0], seen[1])
	assert.Equal(t, 1, gw.Sessions().Len())
}

func TestSessionsSecureCookie(t *testing.T) {
	cfg := testConfig()
	cfg.Server.SecureCookies = true
	gw, _ := newGateway(t, cfg)
	h := Sessions(gw)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := do(h, httptest.NewRequest(http.MethodGet, "/", nil), "198.51.100.8", nil)
	assert.True(t, sessionCookie(t, rec).Secure)
}

func TestSessionsKeepsRequestID(t *testing.T) {
	gw, _ := newGateway(t, testConfig())
	h := Sessions(gw)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "req-42", swad.RequestIDFromContext(r.Context()))
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	do(h, req, "198.51.100.9", nil)
}

func TestSessionsCreationLimit(t *testing.T) {
	gw, clock := newGateway(t, testConfig())
	h := Sessions(gw)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	// The default tiers admit two sessions per five seconds.
	for i := 0; i < 2; i++ {
		rec := do(h, httptest.NewRequest(http.MethodGet, "/", nil), "198.51.100.10", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(h, httptest.NewRequest(http.MethodGet, "/", nil), "198.51.100.10", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = do(h, httptest.NewRequest(http.MethodGet, "/", nil), "198.51.100.11", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "other clients are unaffected")

	clock.Advance(6e9)
	rec = do(h, httptest.NewRequest(http.MethodGet, "/", nil), "198.51.100.10", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionsUnknownCookieCreatesSession(t *testing.T) {
	gw, _ := newGateway(t, testConfig())
	h := Sessions(gw)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	stale := &http.Cookie{Name: session.CookieName, Value: "does-not-exist"}
	rec := do(h, httptest.NewRequest(http.MethodGet, "/", nil), "198.51.100.12", []*http.Cookie{stale})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, stale.Value, sessionCookie(t, rec).Value)
}

func TestSessionsRecordsHTMLReferrer(t *testing.T) {
	gw, _ := newGateway(t, testConfig())
	var sess *session.Session
	h := Sessions(gw)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ = SessionFromContext(r.Context())
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<p>hi</p>"))
		case "/denied":
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusUnauthorized)
		case "/data":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("{}"))
		case "/missing":
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	rec := do(h, httptest.NewRequest(http.MethodGet, "/page", nil), "198.51.100.13", nil)
	jar := []*http.Cookie{sessionCookie(t, rec)}
	assert.Equal(t, "/page", sess.Referrer())

	do(h, httptest.NewRequest(http.MethodGet, "/data", nil), "198.51.100.13", jar)
	do(h, httptest.NewRequest(http.MethodGet, "/missing", nil), "198.51.100.13", jar)
	do(h, httptest.NewRequest(http.MethodPost, "/page", nil), "198.51.100.13", jar)
	assert.Equal(t, "/page", sess.Referrer())

	do(h, httptest.NewRequest(http.MethodGet, "/denied", nil), "198.51.100.13", jar)
	assert.Equal(t, "/denied", sess.Referrer())
}

func TestGuardRedirectsAnonymous(t *testing.T) {
	gw, _ := newGateway(t, testConfig())
	h := Sessions(gw)(RequireUser(gw)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("anonymous request reached the handler")
	})))

	req := httptest.NewRequest(http.MethodGet, "/app", nil)
	req.Header.Set(HeaderRealm, "admin")
	req.Header.Set(HeaderRedirect, "https://app.example/x")
	rec := do(h, req, "198.51.100.20", nil)

	require.Equal(t, http.StatusForbidden, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/login", loc.Path)
	assert.Equal(t, "admin", loc.Query().Get("realm"))
	assert.Equal(t, "https://app.example/x", loc.Query().Get("rdr"))

	sess, ok := gw.Sessions().Get(sessionCookie(t, rec).Value)
	require.True(t, ok)
	realm, _ := sess.Get(PropAuthRealm)
	rdr, _ := sess.Get(PropAuthRedirect)
	assert.Equal(t, "admin", realm)
	assert.Equal(t, "https://app.example/x", rdr)
}

func TestGuardSilentLoginAndStrict(t *testing.T) {
	cfg := testConfig()
	// admin trusts users as well, SWAD does not trust admins.
	cfg.Realms[1].Checkers = []string{"admins", "users"}
	gw, _ := newGateway(t, cfg)

	var got []string
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, found := AuthenticatorFromContext(r.Context())
		require.True(t, found)
		u, _ := auth.User()
		got = append(got, auth.Realm()+"/"+u.Username)
	})
	login := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := SessionFromContext(r.Context())
		res := gw.Authenticator(sess, "").Login(r.Context(), "alice", "pw")
		require.Equal(t, swad.LoginOK, res)
	})

	mux := http.NewServeMux()
	mux.Handle("/login", login)
	mux.Handle("/silent", RequireUser(gw)(ok))
	mux.Handle("/strict", RequireStrict(gw, "admin")(ok))
	h := Sessions(gw)(mux)

	rec := do(h, httptest.NewRequest(http.MethodPost, "/login", nil), "198.51.100.21", nil)
	jar := []*http.Cookie{sessionCookie(t, rec)}

	rec = do(h, httptest.NewRequest(http.MethodGet, "/strict", nil), "198.51.100.21", jar)
	assert.Equal(t, http.StatusForbidden, rec.Code, "strict guard must not log in silently")

	rec = do(h, httptest.NewRequest(http.MethodGet, "/silent?realm=admin", nil), "198.51.100.21", jar)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(h, httptest.NewRequest(http.MethodGet, "/strict", nil), "198.51.100.21", jar)
	assert.Equal(t, http.StatusOK, rec.Code, "silent login established the admin user")

	assert.Equal(t, []string{"admin/alice", "admin/alice"}, got)
}

func TestGuardWithoutSessions(t *testing.T) {
	gw, _ := newGateway(t, testConfig())
	h := RequireUser(gw)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequireAssertion(t *testing.T) {
	gw, _ := newGateway(t, testConfig())
	sess, err := gw.CreateSession(t.Context(), "198.51.100.30")
	require.NoError(t, err)
	auth := gw.Authenticator(sess, "")
	require.Equal(t, swad.LoginOK, auth.Login(t.Context(), "alice", "pw"))
	token, err := gw.IssueAssertion(t.Context(), auth)
	require.NoError(t, err)

	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(id.Username + "@" + id.Realm))
	})

	h := RequireAssertion(gw, "")(upstream)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderAssertion, token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice@SWAD", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderAssertion, token+"x")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderAssertion, token)
	rec = httptest.NewRecorder()
	RequireAssertion(gw, "admin")(upstream).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "realm mismatch")
}

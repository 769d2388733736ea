package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/thejerf/abtime"
	"go.uber.org/zap"

	swad "github.com/MrEthical07/swad"
	"github.com/MrEthical07/swad/session"
)

type staticChecker map[string][2]string

func (c staticChecker) Check(_ context.Context, username, password string) (string, bool, error) {
	u, ok := c[username]
	if !ok || u[0] != password {
		return "", false, nil
	}
	return u[1], true, nil
}

func (staticChecker) Close() error { return nil }

func testConfig() swad.Config {
	cfg := swad.DefaultConfig()
	cfg.Realms = []swad.RealmConfig{
		{Name: "SWAD", Checkers: []string{"users"}},
		{Name: "admin", Checkers: []string{"admins"}},
	}
	cfg.Assertion.Enabled = true
	cfg.Assertion.SigningMethod = "hs256"
	cfg.Assertion.PrivateKey = []byte(strings.Repeat("s", 32))
	return cfg
}

func newGateway(t *testing.T, cfg swad.Config) (*swad.Gateway, *abtime.ManualTime) {
	t.Helper()
	clock := abtime.NewManualAtTime(time.Unix(1_700_000_000, 0).UTC())
	gw, err := swad.New().
		WithConfig(cfg).
		WithClock(clock).
		WithLogger(zap.NewNop()).
		WithChecker("users", staticChecker{"alice": {"pw", "Alice Doe"}}).
		WithChecker("admins", staticChecker{"root": {"toor", "Charlie Root"}}).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })
	return gw, clock
}

// do runs one request through h from addr, carrying cookies from jar.
func do(h http.Handler, req *http.Request, addr string, jar []*http.Cookie) *httptest.ResponseRecorder {
	req.RemoteAddr = addr + ":40000"
	for _, c := range jar {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie set", session.CookieName)
	return nil
}

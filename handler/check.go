package handler

import (
	"net/http"

	"go.uber.org/zap"

	swad "github.com/MrEthical07/swad"
	"github.com/MrEthical07/swad/middleware"
)

// Check returns the forward-auth handler. Requests whose session has a user
// in the requested realm, directly or through silent login, get 200 with
// "username\nrealname\n" and the X-SWAD-User header, plus X-SWAD-Assertion
// when assertions are enabled. Others get the guard's 403 redirect to the
// login route.
func Check(gw *swad.Gateway) http.Handler {
	logger := gw.Logger().Named("check")

	return middleware.RequireUser(gw)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, _ := middleware.AuthenticatorFromContext(r.Context())
		user, ok := auth.User()
		if !ok {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		w.Header().Set(middleware.HeaderUser, user.Username)
		if gw.AssertionsEnabled() {
			token, err := gw.IssueAssertion(r.Context(), auth)
			if err != nil {
				logger.Warn("cannot issue assertion", zap.String("realm", auth.Realm()), zap.Error(err))
			} else {
				w.Header().Set(middleware.HeaderAssertion, token)
			}
		}

		body := user.Username + "\n"
		if user.Realname != "" {
			body += user.Realname + "\n"
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}))
}

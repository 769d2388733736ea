package middleware

import (
	"net/http"

	swad "github.com/MrEthical07/swad"
)

// RequireStrict guards realm without silent login: only an explicit login
// in realm admits the request.
func RequireStrict(gw *swad.Gateway, realm string) func(http.Handler) http.Handler {
	return Guard(gw, GuardOptions{Realm: realm})
}

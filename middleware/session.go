package middleware

import (
	"context"
	"errors"
	"mime"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	swad "github.com/MrEthical07/swad"
	"github.com/MrEthical07/swad/session"
)

// statusRecorder remembers the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// Sessions attaches a session to every request. Requests without a valid
// PSW_SID cookie get a new session, limited per client address; a client
// over its limit is answered 429 Too Many Requests.
//
// The path of every GET answered 200 or 401 with an HTML body is recorded
// as the session's referrer.
func Sessions(gw *swad.Gateway) func(http.Handler) http.Handler {
	cfg := gw.Config().Server
	store := gw.Sessions()
	logger := gw.Logger().Named("http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store.Sweep()

			addr := ClientAddr(r, cfg.TrustedProxies)
			reqID := r.Header.Get(HeaderRequestID)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			ctx := swad.WithRequestID(swad.WithClientAddr(r.Context(), addr), reqID)

			var sess *session.Session
			if c, err := r.Cookie(session.CookieName); err == nil {
				sess, _ = store.Get(c.Value)
			}
			if sess == nil {
				created, err := gw.CreateSession(ctx, addr)
				switch {
				case errors.Is(err, swad.ErrSessionRateLimited):
					http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
					return
				case err != nil:
					logger.Error("cannot create session", zap.Error(err), zap.String("request_id", reqID))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				sess = created
				http.SetCookie(w, &http.Cookie{
					Name:     session.CookieName,
					Value:    sess.ID(),
					Path:     "/",
					HttpOnly: true,
					Secure:   cfg.SecureCookies || r.TLS != nil,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx = context.WithValue(ctx, sessionContextKey{}, sess)
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))

			if r.Method == http.MethodGet && (rec.status == http.StatusOK || rec.status == http.StatusUnauthorized) && isHTML(w.Header()) {
				sess.SetReferrer(r.URL.Path)
			}
		})
	}
}

func isHTML(h http.Header) bool {
	mt, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	return err == nil && mt == "text/html"
}

package handler

import (
	"net/http"

	"go.uber.org/zap"

	swad "github.com/MrEthical07/swad"
	"github.com/MrEthical07/swad/internal"
	"github.com/MrEthical07/swad/middleware"
	"github.com/MrEthical07/swad/session"
)

// Session properties owned by the login handler.
const (
	PropForm     = "login_form"
	PropRedirect = "login_rdr"
	PropRealm    = "login_realm"
	PropUser     = "login_user"
	PropError    = "login_error"
	// PropCSRF holds the single-use token expected in the CSRFField form
	// field of the next POST.
	PropCSRF     = "_CSRFPROTECT"
)

// CSRFField is the form field carrying the CSRF token.
const CSRFField = "_csrf"

const (
	maxFieldLen      = 32
	invalidLoginText = "Invalid credentials"
)

// LoginState is the GET response of the login route.
type LoginState struct {
	Realm    string `json:"realm"`
	User     string `json:"user,omitempty"`
	Realname string `json:"realname,omitempty"`
	// LoggedIn is set when User is authenticated in Realm rather than
	// prefilled from a failed attempt.
	LoggedIn bool   `json:"logged_in"`
	Error    string `json:"error,omitempty"`
	CSRF     string `json:"csrf"`
}

func prop(sess *session.Session, key string) string {
	v, _ := sess.Get(key)
	s, _ := v.(string)
	return s
}

func setProp(sess *session.Session, key, value string) {
	if value == "" {
		sess.Delete(key)
		return
	}
	sess.Set(key, value, nil)
}

// validField reports whether a form value has an acceptable length.
func validField(v string) bool {
	return len(v) >= 1 && len(v) <= maxFieldLen
}

// Login returns the handler for the login route.
//
// GET prepares the session for a login in the requested realm (or the realm
// a guard handed over) and returns the [LoginState] with a fresh CSRF token.
// POST expects the form fields user, pw and login, or logout, plus the CSRF
// token; every outcome is answered 303 See Other. A successful login
// redirects to the stored target; a failed one back to the login form with
// the same response for invalid and blocked credentials.
func Login(gw *swad.Gateway) http.HandlerFunc {
	logger := gw.Logger().Named("login")

	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.SessionFromContext(r.Context())
		if !ok {
			logger.Error("login handler needs the session middleware")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		switch r.Method {
		case http.MethodGet, http.MethodHead:
			showState(gw, w, r, sess, logger)
		case http.MethodPost:
			doLogin(gw, w, r, sess, logger)
		default:
			w.Header().Set("Allow", "GET, HEAD, POST")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	}
}

// updateSession records where the form lives and resolves the realm and
// redirect target, preferring what a guard handed over.
func updateSession(r *http.Request, sess *session.Session) string {
	setProp(sess, PropForm, r.URL.Path)

	realm := prop(sess, middleware.PropAuthRealm)
	if realm == "" {
		realm = middleware.Realm(r)
	}
	if realm == "" {
		realm = swad.DefaultRealm
	}
	if last := prop(sess, PropRealm); last != "" && last != realm {
		sess.Delete(PropUser)
		sess.Delete(PropError)
	}
	setProp(sess, PropRealm, realm)
	sess.Delete(middleware.PropAuthRealm)

	rdr := prop(sess, middleware.PropAuthRedirect)
	if rdr == "" {
		rdr = middleware.Redirect(r)
	}
	if rdr == "" {
		rdr = "/"
	}
	setProp(sess, PropRedirect, rdr)
	sess.Delete(middleware.PropAuthRedirect)

	return realm
}

func showState(gw *swad.Gateway, w http.ResponseWriter, r *http.Request, sess *session.Session, logger *zap.Logger) {
	realm := updateSession(r, sess)

	token, err := internal.NewCSRFToken()
	if err != nil {
		logger.Error("cannot create csrf token", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	setProp(sess, PropCSRF, token)

	state := LoginState{Realm: realm, CSRF: token}
	if user, ok := gw.Authenticator(sess, realm).User(); ok {
		state.User = user.Username
		state.Realname = user.Realname
		state.LoggedIn = true
	} else {
		state.User = prop(sess, PropUser)
		state.Error = prop(sess, PropError)
	}
	writeJSON(w, http.StatusOK, state)
}

func doLogin(gw *swad.Gateway, w http.ResponseWriter, r *http.Request, sess *session.Session, logger *zap.Logger) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	want := prop(sess, PropCSRF)
	if want == "" || r.PostForm.Get(CSRFField) != want {
		logger.Warn("csrf token mismatch",
			zap.String("client_addr", swad.ClientAddrFromContext(r.Context())),
			zap.String("request_id", swad.RequestIDFromContext(r.Context())),
		)
		http.Error(w, "request tampering detected", http.StatusForbidden)
		return
	}
	sess.Delete(PropCSRF)

	form := prop(sess, PropForm)
	if form == "" {
		form = middleware.LoginRoute(r, gw.Config().Server.LoginRoute)
	}
	realm := prop(sess, PropRealm)
	if realm == "" {
		http.Redirect(w, r, form, http.StatusSeeOther)
		return
	}
	rdr := prop(sess, PropRedirect)
	if rdr == "" {
		rdr = "/"
	}

	auth := gw.Authenticator(sess, realm)
	target := form

	switch {
	case r.PostForm.Has("login"):
		user, pw := r.PostForm.Get("user"), r.PostForm.Get("pw")
		if !validField(user) || !validField(pw) {
			break
		}
		setProp(sess, PropUser, user)
		switch res := auth.Login(r.Context(), user, pw); res {
		case swad.LoginOK:
			sess.Delete(PropError)
			target = rdr
		default:
			setProp(sess, PropError, invalidLoginText)
			setProp(sess, middleware.PropAuthRealm, realm)
			setProp(sess, middleware.PropAuthRedirect, rdr)
			logger.Warn("failed login",
				zap.String("realm", realm),
				zap.String("username", user),
				zap.Stringer("result", res),
			)
		}

	case r.PostForm.Has("logout"):
		if auth.Logout(r.Context()) {
			target = rdr
		}
	}

	http.Redirect(w, r, target, http.StatusSeeOther)
}

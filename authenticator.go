package swad

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/MrEthical07/swad/internal"
	"github.com/MrEthical07/swad/internal/limiters"
	"github.com/MrEthical07/swad/internal/rate"
	"github.com/MrEthical07/swad/session"
)

// authInfo is the state of one realm within one session.
type authInfo struct {
	user     *User
	throttle *limiters.LoginThrottle
}

// authState is stored in the session under AuthInfoKey. Its mutex
// serializes every authentication operation of the session, which also
// covers the unlocked per-realm limiters.
type authState struct {
	mu     sync.Mutex
	realms map[string]*authInfo
}

func newAuthState() (any, session.Destructor) {
	return &authState{realms: make(map[string]*authInfo)}, nil
}

// Authenticator scopes login, silent login and logout to one session and
// one realm. It holds no state of its own and is cheap to create per request.
type Authenticator struct {
	gw      *Gateway
	session *session.Session
	realm   string
	state   *authState
}

// Authenticator binds sess to realm. An empty realm selects the configured
// default realm.
func (g *Gateway) Authenticator(sess *session.Session, realm string) *Authenticator {
	if realm == "" {
		realm = g.config.Login.DefaultRealm
	}
	state, _ := sess.LoadOrStore(AuthInfoKey, newAuthState).(*authState)
	if state == nil {
		// Another writer stored a foreign value under our key.
		state = &authState{realms: make(map[string]*authInfo)}
	}
	return &Authenticator{gw: g, session: sess, realm: realm, state: state}
}

// Realm returns the realm this authenticator is bound to.
func (a *Authenticator) Realm() string { return a.realm }

// Session returns the bound session.
func (a *Authenticator) Session() *session.Session { return a.session }

// info returns the realm entry, creating it when create is set. Callers
// hold a.state.mu.
func (a *Authenticator) info(realm *Realm, create bool) *authInfo {
	info, ok := a.state.realms[a.realm]
	if !ok && create {
		var failTiers []rate.Tier
		if realm != nil {
			failTiers = realm.failTiers
		}
		info = &authInfo{
			throttle: limiters.NewLoginThrottle(failTiers, rate.Opts{Clock: a.gw.clock}),
		}
		a.state.realms[a.realm] = info
	}
	return info
}

func (a *Authenticator) logger() *zap.Logger {
	return a.gw.logger.With(
		zap.String("realm", a.realm),
		zap.String("session", internal.RedactID(a.session.ID())),
	)
}

// Login verifies username and password against the realm's checkers in
// order. The first accepting checker wins and replaces any current user.
//
// A username that has exhausted the realm's failure limit is answered with
// LoginBlocked without consulting checkers until the limit admits it again.
// An unknown realm or a realm without checkers yields LoginInvalid and
// changes nothing.
func (a *Authenticator) Login(ctx context.Context, username, password string) LoginResult {
	realm, ok := a.gw.registry.Realm(a.realm)
	if !ok || len(realm.Checkers) == 0 {
		cause := ErrUnknownRealm
		if ok {
			cause = ErrNoCheckers
		}
		a.logger().Warn("login against unusable realm", zap.Error(cause))
		a.finishLogin(ctx, LoginInvalid, username, "", cause)
		return LoginInvalid
	}

	a.state.mu.Lock()
	defer a.state.mu.Unlock()

	info := a.info(realm, true)
	if info.throttle.Blocked(username) && !info.throttle.Retry(username) {
		a.finishLogin(ctx, LoginBlocked, username, "", nil)
		return LoginBlocked
	}

	for _, name := range realm.Checkers {
		chk, ok := a.gw.registry.Checker(name)
		if !ok {
			continue
		}

		start := a.gw.clock.Now()
		realname, accepted, err := chk.Check(ctx, username, password)
		a.gw.metrics.Observe(MetricLoginLatency, a.gw.clock.Now().Sub(start))

		if err != nil {
			a.gw.metrics.Inc(MetricCheckerError)
			a.logger().Warn("credentials checker failed",
				zap.String("checker", name),
				zap.String("username", username),
				zap.Error(err),
			)
			a.gw.emitAudit(ctx, AuditEvent{
				EventType: AuditCheckerError,
				Realm:     a.realm,
				Username:  username,
				Checker:   name,
				SessionID: internal.RedactID(a.session.ID()),
				Error:     err.Error(),
			})
			continue
		}
		if accepted {
			info.user = &User{Username: username, Realname: realname, Checker: name}
			a.finishLogin(ctx, LoginOK, username, name, nil)
			return LoginOK
		}
	}

	if info.throttle.Fail(username) {
		a.finishLogin(ctx, LoginBlocked, username, "", nil)
		return LoginBlocked
	}
	a.finishLogin(ctx, LoginInvalid, username, "", nil)
	return LoginInvalid
}

func (a *Authenticator) finishLogin(ctx context.Context, res LoginResult, username, checker string, cause error) {
	event := AuditEvent{
		Realm:     a.realm,
		Username:  username,
		Checker:   checker,
		SessionID: internal.RedactID(a.session.ID()),
		Success:   res == LoginOK,
	}
	switch res {
	case LoginOK:
		a.gw.metrics.Inc(MetricLoginSuccess)
		event.EventType = AuditLoginSuccess
		a.logger().Info("login succeeded", zap.String("username", username), zap.String("checker", checker))
	case LoginBlocked:
		a.gw.metrics.Inc(MetricLoginBlocked)
		event.EventType = AuditLoginBlocked
		event.Error = ErrLoginBlocked.Error()
		a.logger().Info("login blocked", zap.String("username", username))
	default:
		a.gw.metrics.Inc(MetricLoginInvalid)
		event.EventType = AuditLoginInvalid
		if cause == nil {
			cause = ErrInvalidCredentials
		}
		event.Error = cause.Error()
		a.logger().Debug("login rejected", zap.String("username", username))
	}
	a.gw.emitAudit(ctx, event)
}

// SilentLogin adopts a user authenticated in another realm of the same
// session when that user's checker is trusted by this realm. It reports
// whether the realm has a user afterwards.
//
// When several realms qualify, which one is copied depends on map
// iteration order.
func (a *Authenticator) SilentLogin(ctx context.Context) bool {
	a.state.mu.Lock()
	defer a.state.mu.Unlock()

	if info := a.info(nil, false); info != nil && info.user != nil {
		return true
	}
	realm, ok := a.gw.registry.Realm(a.realm)
	if !ok || len(realm.Checkers) == 0 {
		return false
	}

	for name, other := range a.state.realms {
		if name == a.realm || other.user == nil || !realm.Trusts(other.user.Checker) {
			continue
		}
		user := *other.user
		a.info(realm, true).user = &user

		a.gw.metrics.Inc(MetricSilentLogin)
		a.logger().Debug("silent login", zap.String("username", user.Username), zap.String("from_realm", name))
		a.gw.emitAudit(ctx, AuditEvent{
			EventType: AuditSilentLogin,
			Realm:     a.realm,
			Username:  user.Username,
			Checker:   user.Checker,
			SessionID: internal.RedactID(a.session.ID()),
			Success:   true,
			Metadata:  map[string]string{"from_realm": name},
		})
		return true
	}
	return false
}

// Logout clears the realm's user. Failure tracking is kept. It reports
// whether a user was logged in.
func (a *Authenticator) Logout(ctx context.Context) bool {
	a.state.mu.Lock()
	info := a.info(nil, false)
	if info == nil || info.user == nil {
		a.state.mu.Unlock()
		return false
	}
	user := info.user
	info.user = nil
	a.state.mu.Unlock()

	a.gw.metrics.Inc(MetricLogout)
	a.gw.emitAudit(ctx, AuditEvent{
		EventType: AuditLogout,
		Realm:     a.realm,
		Username:  user.Username,
		Checker:   user.Checker,
		SessionID: internal.RedactID(a.session.ID()),
		Success:   true,
	})
	return true
}

// User returns a copy of the realm's current user.
func (a *Authenticator) User() (User, bool) {
	a.state.mu.Lock()
	defer a.state.mu.Unlock()
	info := a.info(nil, false)
	if info == nil || info.user == nil {
		return User{}, false
	}
	return *info.user, true
}

// Blocked reports whether username is currently blocked in this realm.
func (a *Authenticator) Blocked(username string) bool {
	a.state.mu.Lock()
	defer a.state.mu.Unlock()
	info := a.info(nil, false)
	return info != nil && info.throttle.Blocked(username)
}

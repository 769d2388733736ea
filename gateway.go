package swad

import (
	"context"
	"errors"
	"fmt"

	"github.com/thejerf/abtime"
	"go.uber.org/zap"

	"github.com/MrEthical07/swad/internal"
	"github.com/MrEthical07/swad/internal/audit"
	"github.com/MrEthical07/swad/jwt"
	"github.com/MrEthical07/swad/session"
)

// Gateway is the immutable runtime built by [Builder]. It is safe for
// concurrent use by every request handler.
type Gateway struct {
	config     Config
	registry   *Registry
	sessions   *session.Store
	metrics    *Metrics
	audit      *audit.Dispatcher
	logger     *zap.Logger
	clock      abtime.AbstractTime
	assertions *jwt.Manager
}

// Config returns a copy of the configuration the gateway was built with.
func (g *Gateway) Config() Config { return cloneConfig(g.config) }

// Registry returns the realm and checker registry.
func (g *Gateway) Registry() *Registry { return g.registry }

// Sessions returns the session store.
func (g *Gateway) Sessions() *session.Store { return g.sessions }

// Logger returns the gateway logger.
func (g *Gateway) Logger() *zap.Logger { return g.logger }

// Metrics returns the live counters.
func (g *Gateway) Metrics() *Metrics { return g.metrics }

// MetricsSnapshot copies the current counters. Exporters poll it.
func (g *Gateway) MetricsSnapshot() MetricsSnapshot { return g.metrics.Snapshot() }

// AuditDropped returns the number of audit events dropped on a full queue.
func (g *Gateway) AuditDropped() uint64 { return g.audit.Dropped() }

// ActiveSessions returns the number of live sessions.
func (g *Gateway) ActiveSessions() int { return g.sessions.Len() }

// CreateSession creates a session for clientAddr, subject to the per-client
// creation limit.
func (g *Gateway) CreateSession(ctx context.Context, clientAddr string) (*session.Session, error) {
	sess, err := g.sessions.Create(clientAddr)
	switch {
	case errors.Is(err, session.ErrRateLimited):
		g.metrics.Inc(MetricSessionRateLimited)
		g.emitAudit(ctx, AuditEvent{
			EventType:  AuditSessionRateLimited,
			ClientAddr: clientAddr,
			Error:      ErrSessionRateLimited.Error(),
		})
		return nil, ErrSessionRateLimited
	case err != nil:
		g.logger.Error("session creation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSessionIDExhausted, err)
	}

	g.metrics.Inc(MetricSessionCreated)
	g.emitAudit(ctx, AuditEvent{
		EventType:  AuditSessionCreated,
		ClientAddr: clientAddr,
		SessionID:  internal.RedactID(sess.ID()),
		Success:    true,
	})
	return sess, nil
}

// Run sweeps expired sessions at the configured interval until ctx ends.
func (g *Gateway) Run(ctx context.Context) {
	g.sessions.Run(ctx)
}

// AssertionsEnabled reports whether IssueAssertion can sign.
func (g *Gateway) AssertionsEnabled() bool {
	return g.assertions.CanSign()
}

// IssueAssertion signs a short-lived token asserting the authenticator's
// current user.
func (g *Gateway) IssueAssertion(ctx context.Context, a *Authenticator) (string, error) {
	if !g.assertions.CanSign() {
		return "", ErrAssertionDisabled
	}
	user, ok := a.User()
	if !ok {
		return "", ErrNotAuthenticated
	}

	token, err := g.assertions.Issue(jwt.Identity{
		Username: user.Username,
		Realname: user.Realname,
		Realm:    a.Realm(),
		Checker:  user.Checker,
	})
	if err != nil {
		return "", err
	}

	g.metrics.Inc(MetricAssertionIssued)
	g.emitAudit(ctx, AuditEvent{
		EventType: AuditAssertionIssued,
		Realm:     a.Realm(),
		Username:  user.Username,
		Checker:   user.Checker,
		SessionID: internal.RedactID(a.Session().ID()),
		Success:   true,
	})
	return token, nil
}

// VerifyAssertion checks a token produced by IssueAssertion.
func (g *Gateway) VerifyAssertion(token string) (jwt.Identity, error) {
	if g.assertions == nil {
		return jwt.Identity{}, ErrAssertionDisabled
	}
	claims, err := g.assertions.Parse(token)
	if err != nil {
		return jwt.Identity{}, err
	}
	return claims.Identity(), nil
}

// Close destroys all sessions, drains the audit queue and releases every
// checker.
func (g *Gateway) Close() error {
	g.sessions.Close()
	g.audit.Close()
	return g.registry.Close()
}

package swad

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/MrEthical07/swad/internal/audit"
)

// AuditEvent is one security-relevant gateway action.
type AuditEvent = audit.Event

// AuditSink receives dispatched audit events.
type AuditSink = audit.Sink

// Audit event types.
const (
	AuditLoginSuccess       = "login_success"
	AuditLoginInvalid       = "login_failure"
	AuditLoginBlocked       = "login_blocked"
	AuditSilentLogin        = "silent_login"
	AuditLogout             = "logout"
	AuditCheckerError       = "checker_error"
	AuditSessionCreated     = "session_created"
	AuditSessionRateLimited = "session_rate_limited"
	AuditAssertionIssued    = "assertion_issued"
)

type NoOpSink = audit.NoOpSink

type ChannelSink = audit.ChannelSink

type JSONWriterSink = audit.JSONWriterSink

type ZapSink = audit.ZapSink

func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }

func NewZapSink(logger *zap.Logger) *ZapSink { return audit.NewZapSink(logger) }

// auditSinkFor resolves the configured sink name. An explicit sink passed to
// the builder wins.
func auditSinkFor(cfg AuditConfig, logger *zap.Logger, w io.Writer) AuditSink {
	switch cfg.Sink {
	case "none":
		return NoOpSink{}
	case "json":
		return NewJSONWriterSink(w)
	default:
		return NewZapSink(logger)
	}
}

func (g *Gateway) emitAudit(ctx context.Context, event AuditEvent) {
	if g == nil || g.audit == nil {
		return
	}
	if event.ClientAddr == "" {
		event.ClientAddr = ClientAddrFromContext(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = RequestIDFromContext(ctx)
	}
	g.audit.Emit(ctx, event)
}

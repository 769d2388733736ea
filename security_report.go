package swad

import "github.com/MrEthical07/swad/internal/security"

// SecurityReport is the security posture of a configuration.
type SecurityReport = security.Report

// SecurityReport summarizes cfg. Checker names are resolved against
// cfg.Checkers plus extra.
func (c Config) SecurityReport(extra ...string) SecurityReport {
	empty := 0
	for _, r := range c.Realms {
		if len(r.Checkers) == 0 {
			empty++
		}
	}
	return security.BuildReport(security.ReportInput{
		SecureCookies:       c.Server.SecureCookies,
		TrustedProxies:      c.Server.TrustedProxies,
		SessionIdleTimeout:  c.Session.IdleTimeout,
		SessionMaxAge:       c.Session.MaxAge,
		SessionCreateLimits: len(c.Session.CreateLimits),
		LoginFailLimits:     len(c.Login.FailLimits),
		AssertionsEnabled:   c.Assertion.Enabled,
		SigningAlgorithm:    c.Assertion.SigningMethod,
		AssertionTTL:        c.Assertion.TTL,
		AuditEnabled:        c.Audit.Enabled,
		Password: security.PasswordReport{
			Memory:      c.Password.Memory,
			Time:        c.Password.Time,
			Parallelism: c.Password.Parallelism,
			SaltLength:  c.Password.SaltLength,
			KeyLength:   c.Password.KeyLength,
		},
		UnresolvedCheckers: len(UnknownCheckers(c, extra...)),
		EmptyRealms:        empty,
	})
}

// SecurityReport summarizes the gateway's configuration.
func (g *Gateway) SecurityReport() SecurityReport {
	return g.config.SecurityReport(g.registry.CheckerNames()...)
}

package security

import "time"

// PasswordReport mirrors the argon2id parameters used for new hashes.
type PasswordReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Report summarizes the security-relevant posture of a configuration.
type Report struct {
	SecureCookies       bool
	TrustedProxies      int
	SessionIdleTimeout  time.Duration
	SessionMaxAge       time.Duration
	SessionCreateLimits int
	LoginFailLimits     int
	AssertionsEnabled   bool
	SigningAlgorithm    string
	AssertionTTL        time.Duration
	AuditEnabled        bool
	Argon2              PasswordReport
	Warnings            []string
}

// ReportInput carries the configuration values a Report is derived from.
type ReportInput struct {
	SecureCookies       bool
	TrustedProxies      int
	SessionIdleTimeout  time.Duration
	SessionMaxAge       time.Duration
	SessionCreateLimits int
	LoginFailLimits     int
	AssertionsEnabled   bool
	SigningAlgorithm    string
	AssertionTTL        time.Duration
	AuditEnabled        bool
	Password            PasswordReport
	UnresolvedCheckers  int
	EmptyRealms         int
}

func BuildReport(input ReportInput) Report {
	r := Report{
		SecureCookies:       input.SecureCookies,
		TrustedProxies:      input.TrustedProxies,
		SessionIdleTimeout:  input.SessionIdleTimeout,
		SessionMaxAge:       input.SessionMaxAge,
		SessionCreateLimits: input.SessionCreateLimits,
		LoginFailLimits:     input.LoginFailLimits,
		AssertionsEnabled:   input.AssertionsEnabled,
		AuditEnabled:        input.AuditEnabled,
		Argon2:              input.Password,
	}
	if input.AssertionsEnabled {
		r.SigningAlgorithm = input.SigningAlgorithm
		r.AssertionTTL = input.AssertionTTL
	}

	if !input.SecureCookies {
		r.Warnings = append(r.Warnings, "session cookies are sent without the Secure flag")
	}
	if input.SessionIdleTimeout > input.SessionMaxAge {
		r.Warnings = append(r.Warnings, "session idle timeout exceeds max age")
	}
	if input.AssertionsEnabled && input.SigningAlgorithm == "hs256" {
		r.Warnings = append(r.Warnings, "assertions use a shared secret; upstreams can forge them")
	}
	if input.AssertionsEnabled && input.AssertionTTL > 5*time.Minute {
		r.Warnings = append(r.Warnings, "assertion ttl is longer than five minutes")
	}
	if input.UnresolvedCheckers > 0 {
		r.Warnings = append(r.Warnings, "realms reference unknown checkers")
	}
	if input.EmptyRealms > 0 {
		r.Warnings = append(r.Warnings, "some realms have no checkers and reject every login")
	}
	return r
}

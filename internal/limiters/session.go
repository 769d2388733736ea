package limiters

import (
	"github.com/thejerf/abtime"

	"github.com/MrEthical07/swad/internal/rate"
)

// DefaultSessionCreationTiers bounds how fast one client may obtain new sessions.
var DefaultSessionCreationTiers = []rate.Tier{
	{Seconds: 5, Limit: 2},
	{Seconds: 60, Limit: 5},
	{Seconds: 3600, Limit: 15},
}

// SessionCreation gates session creation per client address.
type SessionCreation struct {
	limiter *rate.RateLimit
}

// NewSessionCreation returns a locked limiter over tiers, falling back to
// [DefaultSessionCreationTiers] when tiers is empty.
func NewSessionCreation(tiers []rate.Tier, clock abtime.AbstractTime) *SessionCreation {
	if len(tiers) == 0 {
		tiers = DefaultSessionCreationTiers
	}
	return &SessionCreation{
		limiter: rate.New(rate.Opts{
			Tiers:  append([]rate.Tier(nil), tiers...),
			Locked: true,
			Clock:  clock,
		}),
	}
}

// Allow records a creation attempt for clientAddr and reports whether it is
// within budget. A nil receiver allows everything.
func (s *SessionCreation) Allow(clientAddr string) bool {
	if s == nil {
		return true
	}
	return s.limiter.Check(clientAddr)
}

// Tiers returns the enforced tiers.
func (s *SessionCreation) Tiers() []rate.Tier {
	if s == nil {
		return nil
	}
	return s.limiter.Tiers()
}

package limiters

import (
	"github.com/MrEthical07/swad/internal/rate"
)

// DefaultLoginTiers is used for realms without their own failure limits.
var DefaultLoginTiers = []rate.Tier{{Seconds: 900, Limit: 5}}

// LoginThrottle tracks failed logins for one realm inside one session.
type LoginThrottle struct {
	opts    rate.Opts
	limiter *rate.RateLimit
	blocked map[string]struct{}
}

// NewLoginThrottle returns a throttle using tiers, or [DefaultLoginTiers] when
// tiers is empty. The underlying limiter is created on first use.
func NewLoginThrottle(tiers []rate.Tier, opts rate.Opts) *LoginThrottle {
	if len(tiers) == 0 {
		tiers = DefaultLoginTiers
	}
	opts.Tiers = append([]rate.Tier(nil), tiers...)
	opts.Locked = false
	return &LoginThrottle{opts: opts}
}

func (t *LoginThrottle) rateLimit() *rate.RateLimit {
	if t.limiter == nil {
		t.limiter = rate.New(t.opts)
	}
	return t.limiter
}

// Blocked reports whether username is in the blocked set.
func (t *LoginThrottle) Blocked(username string) bool {
	if t == nil {
		return false
	}
	_, ok := t.blocked[username]
	return ok
}

// Retry consults the limiter for a blocked username and unblocks it when the
// limiter grants capacity again. Reports whether username may proceed.
func (t *LoginThrottle) Retry(username string) bool {
	if t == nil {
		return true
	}
	if !t.rateLimit().Check(username) {
		return false
	}
	delete(t.blocked, username)
	return true
}

// Fail records a failed attempt for username and reports whether it is now
// blocked.
func (t *LoginThrottle) Fail(username string) bool {
	if t == nil {
		return false
	}
	if t.rateLimit().Check(username) {
		return false
	}
	if t.blocked == nil {
		t.blocked = make(map[string]struct{})
	}
	t.blocked[username] = struct{}{}
	return true
}

// BlockedCount returns the number of blocked usernames.
func (t *LoginThrottle) BlockedCount() int {
	if t == nil {
		return 0
	}
	return len(t.blocked)
}

// Tiers returns the tiers this throttle enforces.
func (t *LoginThrottle) Tiers() []rate.Tier {
	if t == nil {
		return nil
	}
	return append([]rate.Tier(nil), t.opts.Tiers...)
}

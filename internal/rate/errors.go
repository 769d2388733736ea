package rate

import "errors"

var (
	// ErrNoTiers is returned by [Opts.Validate] for an empty tier list.
	ErrNoTiers = errors.New("rate limit has no tiers")
	// ErrInvalidTier is returned by [Opts.Validate] for a zero window or limit.
	ErrInvalidTier = errors.New("invalid rate limit tier")
)

package rate

import (
	"fmt"
	"sync"
	"time"

	"github.com/thejerf/abtime"
)

// MaxBuckets bounds the number of time buckets per tier and tracked identity.
const MaxBuckets = 512

// Tier is one sliding-window rule: at most Limit events per Seconds.
type Tier struct {
	Seconds uint16
	Limit   uint16
}

func (t Tier) String() string {
	return fmt.Sprintf("%d/%ds", t.Limit, t.Seconds)
}

// Opts collects the tiers of a [RateLimit] before it is built.
type Opts struct {
	Tiers []Tier

	// Locked guards the limiter with a mutex. Required for instances shared
	// between goroutines.
	Locked bool

	// Clock defaults to the real clock.
	Clock abtime.AbstractTime
}

// Add appends a tier and returns the receiver for chaining.
func (o *Opts) Add(seconds, limit uint16) *Opts {
	o.Tiers = append(o.Tiers, Tier{Seconds: seconds, Limit: limit})
	return o
}

// Validate reports whether every tier has a non-zero window and limit.
func (o Opts) Validate() error {
	if len(o.Tiers) == 0 {
		return ErrNoTiers
	}
	for i, t := range o.Tiers {
		if t.Seconds == 0 || t.Limit == 0 {
			return fmt.Errorf("%w: tier %d (%s)", ErrInvalidTier, i, t)
		}
	}
	return nil
}

type entry struct {
	last   int64
	total  uint32
	counts []uint16
}

type limit struct {
	Tier
	res     int64
	ncounts int64
	lastGC  int64
	entries map[string]*entry
}

func newLimit(t Tier) *limit {
	res := (int64(t.Seconds) + MaxBuckets - 1) / MaxBuckets
	if res < 1 {
		res = 1
	}
	return &limit{
		Tier:    t,
		res:     res,
		ncounts: (int64(t.Seconds) + res - 1) / res,
		lastGC:  -1,
		entries: make(map[string]*entry),
	}
}

func (l *limit) check(id string, now int64) bool {
	bucket := now / l.res

	if bucket != l.lastGC {
		l.lastGC = bucket
		for key, e := range l.entries {
			if key != id && bucket-e.last >= l.ncounts {
				delete(l.entries, key)
			}
		}
	}

	e, ok := l.entries[id]
	if !ok {
		e = &entry{last: bucket, counts: make([]uint16, l.ncounts)}
		l.entries[id] = e
	}

	switch steps := bucket - e.last; {
	case steps >= l.ncounts:
		clear(e.counts)
		e.total = 0
	case steps > 0:
		for i := int64(1); i <= steps; i++ {
			pos := (e.last + i) % l.ncounts
			e.total -= uint32(e.counts[pos])
			e.counts[pos] = 0
		}
	}
	if bucket > e.last {
		e.last = bucket
	}

	if e.total >= uint32(l.Limit) {
		return false
	}
	e.counts[e.last%l.ncounts]++
	e.total++
	return true
}

func (l *limit) tracked(id string) bool {
	_, ok := l.entries[id]
	return ok
}

// RateLimit is a composite of sliding-window tiers keyed by identity.
type RateLimit struct {
	mu     *sync.Mutex
	clock  abtime.AbstractTime
	limits []*limit
}

// New builds a [RateLimit] from opts. Tiers with a zero window or limit are
// ignored; callers wanting an error should call [Opts.Validate] first.
func New(opts Opts) *RateLimit {
	rl := &RateLimit{clock: opts.Clock}
	if rl.clock == nil {
		rl.clock = abtime.NewRealTime()
	}
	if opts.Locked {
		rl.mu = &sync.Mutex{}
	}
	for _, t := range opts.Tiers {
		if t.Seconds == 0 || t.Limit == 0 {
			continue
		}
		rl.limits = append(rl.limits, newLimit(t))
	}
	return rl
}

// Check records an event for id and reports whether every tier had capacity.
// An unreadable clock denies. A nil limiter permits everything.
func (r *RateLimit) Check(id string) bool {
	if r == nil {
		return true
	}
	now := r.clock.Now()
	if now.IsZero() {
		return false
	}
	secs := now.Unix()
	if secs < 0 {
		return false
	}

	if r.mu != nil {
		r.mu.Lock()
		defer r.mu.Unlock()
	}

	ok := true
	for _, l := range r.limits {
		if !l.check(id, secs) {
			ok = false
		}
	}
	return ok
}

// Tiers returns the effective tiers in evaluation order.
func (r *RateLimit) Tiers() []Tier {
	if r == nil {
		return nil
	}
	out := make([]Tier, 0, len(r.limits))
	for _, l := range r.limits {
		out = append(out, l.Tier)
	}
	return out
}

// Tracked reports whether any tier still holds state for id.
func (r *RateLimit) Tracked(id string) bool {
	if r == nil {
		return false
	}
	if r.mu != nil {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	for _, l := range r.limits {
		if l.tracked(id) {
			return true
		}
	}
	return false
}

// Window returns the longest tier window.
func (r *RateLimit) Window() time.Duration {
	var longest time.Duration
	for _, t := range r.Tiers() {
		if d := time.Duration(t.Seconds) * time.Second; d > longest {
			longest = d
		}
	}
	return longest
}

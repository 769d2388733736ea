package rate

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/abtime"
)

func manualClock() *abtime.ManualTime {
	return abtime.NewManualAtTime(time.Unix(1_700_000_000, 0).UTC())
}

func checks(rl *RateLimit, id string, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = rl.Check(id)
	}
	return out
}

func equalBools(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSingleTierWindow(t *testing.T) {
	clock := manualClock()
	rl := New(Opts{Tiers: []Tier{{Seconds: 5, Limit: 2}}, Clock: clock})

	if got := checks(rl, "10.0.0.1", 3); !equalBools(got, []bool{true, true, false}) {
		t.Fatalf("unexpected results inside window: %v", got)
	}

	clock.Advance(4 * time.Second)
	if rl.Check("10.0.0.1") {
		t.Fatalf("expected deny before window elapsed")
	}

	clock.Advance(time.Second)
	if !rl.Check("10.0.0.1") {
		t.Fatalf("expected allow after window elapsed")
	}
}

func TestCompositeTiersPartialConsumption(t *testing.T) {
	clock := manualClock()
	opts := &Opts{Clock: clock}
	opts.Add(5, 2).Add(3600, 3)
	rl := New(*opts)

	if got := checks(rl, "id", 4); !equalBools(got, []bool{true, true, false, false}) {
		t.Fatalf("unexpected composite results: %v", got)
	}

	// The third call was denied overall but still counted in the hour tier.
	clock.Advance(5 * time.Second)
	if rl.Check("id") {
		t.Fatalf("expected hour tier to stay saturated by the denied call")
	}

	clock.Advance(time.Hour)
	if !rl.Check("id") {
		t.Fatalf("expected allow after both windows elapsed")
	}
}

func TestIdentitiesAreIndependent(t *testing.T) {
	rl := New(Opts{Tiers: []Tier{{Seconds: 60, Limit: 1}}, Clock: manualClock()})

	if !rl.Check("alice") {
		t.Fatalf("expected first alice check to pass")
	}
	if rl.Check("alice") {
		t.Fatalf("expected second alice check to fail")
	}
	if !rl.Check("bob") {
		t.Fatalf("expected bob to be unaffected by alice")
	}
}

func TestLongWindowIsCoarsened(t *testing.T) {
	clock := manualClock()
	rl := New(Opts{Tiers: []Tier{{Seconds: 1024, Limit: 1}}, Clock: clock})

	if l := rl.limits[0]; l.res != 2 || l.ncounts != MaxBuckets {
		t.Fatalf("unexpected resolution res=%d ncounts=%d", l.res, l.ncounts)
	}
	if !rl.Check("id") {
		t.Fatalf("expected first check to pass")
	}

	clock.Advance(1023 * time.Second)
	if rl.Check("id") {
		t.Fatalf("expected deny one second before window end")
	}

	clock.Advance(time.Second)
	if !rl.Check("id") {
		t.Fatalf("expected allow once window elapsed")
	}
}

func TestExpiredIdentitiesAreCollected(t *testing.T) {
	clock := manualClock()
	rl := New(Opts{Tiers: []Tier{{Seconds: 5, Limit: 2}}, Clock: clock})

	rl.Check("a")
	if !rl.Tracked("a") {
		t.Fatalf("expected a to be tracked")
	}

	clock.Advance(5 * time.Second)
	rl.Check("b")
	if rl.Tracked("a") {
		t.Fatalf("expected a to be collected after its window expired")
	}
	if !rl.Tracked("b") {
		t.Fatalf("expected b to be tracked")
	}
}

type zeroClock struct {
	abtime.AbstractTime
}

func (zeroClock) Now() time.Time { return time.Time{} }

func TestUnreadableClockDenies(t *testing.T) {
	rl := New(Opts{Tiers: []Tier{{Seconds: 5, Limit: 100}}, Clock: zeroClock{}})
	if rl.Check("id") {
		t.Fatalf("expected deny when clock is unreadable")
	}
}

func TestNilLimiterPermits(t *testing.T) {
	var rl *RateLimit
	if !rl.Check("id") {
		t.Fatalf("expected nil limiter to permit")
	}
	if rl.Tiers() != nil {
		t.Fatalf("expected no tiers on nil limiter")
	}
}

func TestLockedLimiterConcurrentChecks(t *testing.T) {
	rl := New(Opts{Tiers: []Tier{{Seconds: 60, Limit: 10}}, Locked: true, Clock: manualClock()})

	var granted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Check("shared") {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := granted.Load(); got != 10 {
		t.Fatalf("expected exactly 10 grants, got %d", got)
	}
}

func TestOptsValidate(t *testing.T) {
	if err := (Opts{}).Validate(); !errors.Is(err, ErrNoTiers) {
		t.Fatalf("expected ErrNoTiers, got %v", err)
	}
	if err := (Opts{Tiers: []Tier{{Seconds: 0, Limit: 1}}}).Validate(); !errors.Is(err, ErrInvalidTier) {
		t.Fatalf("expected ErrInvalidTier, got %v", err)
	}
	if err := (Opts{Tiers: []Tier{{Seconds: 5, Limit: 2}}}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rl := New(Opts{Tiers: []Tier{{Seconds: 0, Limit: 1}, {Seconds: 900, Limit: 5}}})
	if tiers := rl.Tiers(); len(tiers) != 1 || tiers[0].Seconds != 900 {
		t.Fatalf("expected invalid tier to be dropped, got %v", tiers)
	}
	if rl.Window() != 900*time.Second {
		t.Fatalf("unexpected window %v", rl.Window())
	}
}

package limiters

import (
	"testing"
	"time"

	"github.com/thejerf/abtime"

	"github.com/MrEthical07/swad/internal/rate"
)

func TestLoginThrottleBlocksAndRecovers(t *testing.T) {
	clock := abtime.NewManualAtTime(time.Unix(1_700_000_000, 0))
	th := NewLoginThrottle([]rate.Tier{{Seconds: 60, Limit: 2}}, rate.Opts{Clock: clock})

	if th.Fail("alice") || th.Fail("alice") {
		t.Fatalf("expected first two failures to stay unblocked")
	}
	if !th.Fail("alice") {
		t.Fatalf("expected third failure to block")
	}
	if !th.Blocked("alice") || th.BlockedCount() != 1 {
		t.Fatalf("expected alice in blocked set")
	}
	if th.Retry("alice") {
		t.Fatalf("expected retry inside window to be denied")
	}

	clock.Advance(60 * time.Second)
	if !th.Retry("alice") {
		t.Fatalf("expected retry after window to pass")
	}
	if th.Blocked("alice") {
		t.Fatalf("expected alice to be unblocked")
	}
}

func TestLoginThrottleDefaults(t *testing.T) {
	th := NewLoginThrottle(nil, rate.Opts{})
	tiers := th.Tiers()
	if len(tiers) != 1 || tiers[0] != (rate.Tier{Seconds: 900, Limit: 5}) {
		t.Fatalf("unexpected default tiers %v", tiers)
	}

	var nilThrottle *LoginThrottle
	if nilThrottle.Blocked("x") || nilThrottle.Fail("x") || !nilThrottle.Retry("x") {
		t.Fatalf("nil throttle must never block")
	}
}

func TestSessionCreationTiers(t *testing.T) {
	clock := abtime.NewManualAtTime(time.Unix(1_700_000_000, 0))
	sc := NewSessionCreation(nil, clock)

	if !sc.Allow("192.0.2.1") || !sc.Allow("192.0.2.1") {
		t.Fatalf("expected two creations to pass")
	}
	if sc.Allow("192.0.2.1") {
		t.Fatalf("expected third creation inside 5s to be denied")
	}
	if !sc.Allow("192.0.2.2") {
		t.Fatalf("expected other client to be unaffected")
	}

	clock.Advance(5 * time.Second)
	if !sc.Allow("192.0.2.1") {
		t.Fatalf("expected creation to pass after short window")
	}
}

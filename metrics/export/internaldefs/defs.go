package internaldefs

import (
	swad "github.com/MrEthical07/swad"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   swad.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   swad.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: swad.MetricLoginSuccess, Name: "swad_login_success_total", Help: "Logins accepted by a credentials checker."},
	{ID: swad.MetricLoginInvalid, Name: "swad_login_invalid_total", Help: "Logins no credentials checker accepted."},
	{ID: swad.MetricLoginBlocked, Name: "swad_login_blocked_total", Help: "Logins refused by the failed-login throttle."},
	{ID: swad.MetricSilentLogin, Name: "swad_silent_login_total", Help: "Users adopted from another realm of the same session."},
	{ID: swad.MetricLogout, Name: "swad_logout_total", Help: "Logouts that cleared a user."},
	{ID: swad.MetricCheckerError, Name: "swad_checker_error_total", Help: "Backend errors reported by credentials checkers."},
	{ID: swad.MetricSessionCreated, Name: "swad_session_created_total", Help: "Created sessions."},
	{ID: swad.MetricSessionExpired, Name: "swad_session_expired_total", Help: "Sessions removed for idleness or age."},
	{ID: swad.MetricSessionRateLimited, Name: "swad_session_rate_limited_total", Help: "Session creations refused by the per-client limit."},
	{ID: swad.MetricSweepRun, Name: "swad_sweep_run_total", Help: "Executed session sweeps."},
	{ID: swad.MetricAssertionIssued, Name: "swad_assertion_issued_total", Help: "Signed identity assertions."},
}

// HistogramDefs lists every histogram.
var HistogramDefs = []HistogramDef{
	{ID: swad.MetricLoginLatency, Name: "swad_checker_latency_seconds", Help: "Credentials checker round trip latency."},
}

const (
	AuditDroppedName = "swad_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

	ActiveSessionsName = "swad_sessions_active"
	ActiveSessionsHelp = "Live sessions."
)

// HistogramUpperBounds are the finite bucket bounds in seconds. The last
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that
// flatten buckets into separate instruments.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

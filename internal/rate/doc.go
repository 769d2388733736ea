// Package rate implements the in-memory sliding-window limiter used by the
// login-failure and session-creation throttles.
//
// # Window semantics
//
// Each tier splits its window into at most [MaxBuckets] fixed-size buckets.
// Bucket size is ceil(seconds/MaxBuckets), so memory per tracked identity is
// bounded regardless of window length. Long windows are coarsened to bucket
// granularity.
//
// A check evaluates every tier. A tier with capacity records the event even
// when another tier denies, so a denied check may still consume budget.
//
// # What this package must NOT do
//
//   - Implement domain-specific policies (those live in internal/limiters).
//   - Be imported outside the swad module.
package rate

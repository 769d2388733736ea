// Package limiters composes internal/rate primitives into the two throttles
// the gateway enforces.
//
// # Limiters
//
//   - [LoginThrottle]: per session+realm login-failure limiter plus the set of
//     usernames currently blocked by it. Not safe for concurrent use; the
//     owning authenticator serializes access.
//   - [SessionCreation]: process-wide, locked limiter keyed by client address.
//
// All limiters are nil-safe.
//
// # What this package must NOT do
//
//   - Import swad or any sibling internal package except internal/rate.
//   - Decide what a denial means to the caller.
package limiters

// Package jwt issues and verifies short-lived identity assertions that the
// gateway hands to upstream services after a successful forward-auth check.
//
// An assertion carries the authenticated username as subject, the real name,
// the realm and the checker that authenticated the user. Ed25519 and HS256
// are supported.
//
// # What this package must NOT do
//
//   - Import swad or session (no upward imports).
//   - Act as a session token. A verified assertion never creates a session.
package jwt

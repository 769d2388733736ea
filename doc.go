// Package swad is a self-hosted authentication gateway: it keeps
// per-browser sessions, authenticates users per realm against pluggable
// credentials checkers and throttles brute force attempts.
//
// Build a [Gateway] with [Builder], bind an [Authenticator] to a session
// and a realm for every request, and call [Authenticator.Login],
// [Authenticator.SilentLogin] or [Authenticator.Logout]. The gateway and
// its registry are immutable after Build and safe for concurrent use.
//
// # Architecture boundaries
//
// swad is the public surface. Session storage lives in session/, hashing in
// password/, assertions in jwt/, checker classes in cred/ and the HTTP
// surface in middleware/ and handler/. Rate limiting and audit dispatch
// live under internal/ and are never exported directly.
//
// # What this package must NOT do
//
//   - Import cred/, middleware/ or handler/ (they import swad).
//   - Perform network I/O other than through a CredentialsChecker.
//   - Log passwords.
package swad

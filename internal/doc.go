// Package internal contains helpers that are private to swad: session and
// CSRF token generation and identifier redaction for logs.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - limiters: login-failure and session-creation throttles
//   - rate: sliding-window rate limit engine
//   - security: configuration posture report
//
// # What this package must NOT do
//
//   - Export types that appear in the public swad API.
//   - Be imported by any package outside the swad module.
package internal

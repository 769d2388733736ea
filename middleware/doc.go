// Package middleware adapts the gateway to net/http.
//
//   - [Sessions] resolves the client address, attaches or creates the
//     PSW_SID session and records the HTML referrer.
//   - [Guard], [RequireUser] and [RequireStrict] admit only requests whose
//     session has a user in the realm.
//   - [RequireAssertion] verifies identity assertions for upstream services.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Gateway and Authenticator
// calls. Authentication decisions stay in the swad package.
//
// # What this package must NOT do
//
//   - Check credentials itself.
//   - Store anything in the session other than what the gateway stores.
package middleware

// Package handler provides the gateway's HTTP endpoints.
//
//   - [Login] serves the login route: GET reports the login state as JSON,
//     POST performs a form login or logout.
//   - [Check] answers forward-auth subrequests for the default route.
//
// Both expect to run inside [middleware.Sessions].
//
// # What this package must NOT do
//
//   - Render HTML. The login state is returned as JSON for a frontend to
//     present.
//   - Tell invalid credentials and blocked usernames apart in responses.
package handler

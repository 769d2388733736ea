// Package audit implements async event dispatching for login, logout and
// session lifecycle events.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, zap, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured audit record with id, timestamp, realm, username, client address.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; the gateway and authenticator do.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import swad or any sibling internal package.
//   - Record passwords or raw session identifiers.
package audit

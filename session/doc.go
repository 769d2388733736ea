// Package session provides the in-memory, sharded session store that backs
// the gateway's cookie sessions.
//
// # Sharding
//
// Sessions live in 256 shards, each guarded by its own mutex, so lookups on
// different shards never contend. A session's property bag is guarded by the
// session's own mutex; the store never holds a shard lock while a property
// is mutated or a destructor runs.
//
// # Expiry
//
// A session expires when it has been idle longer than the idle timeout or is
// older than the absolute maximum age. Expiry is checked lazily on [Store.Get]
// and swept periodically by [Store.Sweep], which is throttled to one run per
// sweep interval.
//
// # What this package must NOT do
//
//   - Import swad, jwt, or cred (no upward imports).
//   - Persist sessions; all state is lost on restart.
//   - Interpret property values stored by other packages.
package session

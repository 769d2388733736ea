// Package otel binds gateway metrics to an OpenTelemetry meter.
//
// [NewExporter] registers an Int64ObservableCounter per gateway counter, an
// Int64ObservableGauge per latency bucket and one for the live session
// count. A single callback reads the gateway snapshot on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate gateway state.
package otel

// Package prometheus exports gateway metrics through client_golang.
//
// [Exporter] is a prometheus.Collector that polls the gateway on every
// scrape. Counter names are swad_*_total; the checker latency histogram is
// swad_checker_latency_seconds and the live session count is the gauge
// swad_sessions_active.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry. Callers mount
//     [Exporter.Handler] or register the exporter themselves.
//   - Mutate gateway state.
package prometheus

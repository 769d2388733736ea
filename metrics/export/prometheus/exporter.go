package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swad "github.com/MrEthical07/swad"
	"github.com/MrEthical07/swad/metrics/export/internaldefs"
)

// MetricsSource is what the exporter polls; *swad.Gateway implements it.
type MetricsSource interface {
	MetricsSnapshot() swad.MetricsSnapshot
	AuditDropped() uint64
	ActiveSessions() int
}

type counterDesc struct {
	id   swad.MetricID
	desc *prometheus.Desc
}

type histogramDesc struct {
	id   swad.MetricID
	desc *prometheus.Desc
}

// Exporter is a prometheus.Collector reading gateway metrics on every
// scrape.
type Exporter struct {
	source       MetricsSource
	counters     []counterDesc
	histograms   []histogramDesc
	auditDropped *prometheus.Desc
	sessions     *prometheus.Desc
	registry     *prometheus.Registry
}

// NewExporter creates an exporter for gw.
func NewExporter(gw *swad.Gateway) *Exporter {
	return NewExporterFromSource(gw)
}

// NewExporterFromSource creates an exporter polling source. It registers
// itself in a private registry served by [Exporter.Handler].
func NewExporterFromSource(source MetricsSource) *Exporter {
	e := &Exporter{
		source:       source,
		counters:     make([]counterDesc, 0, len(internaldefs.CounterDefs)),
		histograms:   make([]histogramDesc, 0, len(internaldefs.HistogramDefs)),
		auditDropped: prometheus.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil),
		sessions:     prometheus.NewDesc(internaldefs.ActiveSessionsName, internaldefs.ActiveSessionsHelp, nil, nil),
		registry:     prometheus.NewRegistry(),
	}
	for _, def := range internaldefs.CounterDefs {
		e.counters = append(e.counters, counterDesc{id: def.ID, desc: prometheus.NewDesc(def.Name, def.Help, nil, nil)})
	}
	for _, def := range internaldefs.HistogramDefs {
		e.histograms = append(e.histograms, histogramDesc{id: def.ID, desc: prometheus.NewDesc(def.Name, def.Help, nil, nil)})
	}
	e.registry.MustRegister(e)
	return e
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range e.counters {
		ch <- c.desc
	}
	for _, h := range e.histograms {
		ch <- h.desc
	}
	ch <- e.auditDropped
	ch <- e.sessions
}

// Collect implements prometheus.Collector. Disabled metrics export nothing
// but the session gauge.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	if e.source == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(e.sessions, prometheus.GaugeValue, float64(e.source.ActiveSessions()))

	snapshot := e.source.MetricsSnapshot()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 {
		return
	}
	for _, c := range e.counters {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.CounterValue, float64(snapshot.Counters[c.id]))
	}
	for _, h := range e.histograms {
		raw, ok := snapshot.Histograms[h.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for i, le := range internaldefs.HistogramUpperBounds {
			buckets[le] = cumulative[i]
		}
		// Sums are not tracked by the core histogram.
		ch <- prometheus.MustNewConstHistogram(h.desc, cumulative[len(cumulative)-1], 0, buckets)
	}
	ch <- prometheus.MustNewConstMetric(e.auditDropped, prometheus.CounterValue, float64(e.source.AuditDropped()))
}

// Registry returns the private registry the exporter is registered in.
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// Handler serves the private registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Package metric provides Prometheus metrics for statesnap.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "statesnap"

// Tick results recorded by TicksTotal.
const (
	TickIgnored  = "ignored"
	TickSkipped  = "skipped"
	TickDeferred = "deferred"
	TickFired    = "fired"
)

// Export results recorded by ExportsTotal.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	TicksTotal     *prometheus.CounterVec
	ExportsTotal   *prometheus.CounterVec
	ExportDuration *prometheus.HistogramVec
	SnapshotSize   prometheus.Gauge
	PendingWorkers prometheus.Gauge
	AliasFailures  prometheus.Counter
}

// NewRegistry creates a registry with the snapshot metrics and the Go
// runtime collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		TicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Scheduler ticks by outcome",
		}, []string{"result"}),
		ExportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Snapshot exports by codec and result",
		}, []string{"codec", "result"}),
		ExportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Time spent serializing and publishing a snapshot",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"codec"}),
		SnapshotSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_size_bytes",
			Help:      "Size of the newest snapshot file",
		}),
		PendingWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_workers",
			Help:      "Workers with an outstanding assignment",
		}),
		AliasFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alias_failures_total",
			Help:      "Exports whose current alias could not be republished",
		}),
	}

	r.reg.MustRegister(
		r.TicksTotal,
		r.ExportsTotal,
		r.ExportDuration,
		r.SnapshotSize,
		r.PendingWorkers,
		r.AliasFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// MustRegister registers additional collectors.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.reg.MustRegister(cs...)
}

// Gatherer exposes the underlying registry for scraping and tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

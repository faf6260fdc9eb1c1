// Package metric provides Prometheus metrics for statesnap.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: registry, scheduler/export metrics and HTTP handler
//   - collector.go: scrape-time collector for on-disk snapshot statistics
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
